package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/razonbilstro/nucleus-service/internal/corpus"
	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/tokenizer"
)

func newTestGenerator(t *testing.T) (*Generator, string) {
	t.Helper()
	dir := t.TempDir()
	tok := tokenizer.New(tokenizer.DefaultVocabSize)
	return NewGenerator(corpus.Default(), tok, nil, dir), dir
}

func TestGenerateKali(t *testing.T) {
	g, _ := newTestGenerator(t)
	summary, err := g.Generate(context.Background(), "kali")
	if err != nil {
		t.Fatalf("generate kali: %v", err)
	}

	// 8 tools x 5 commands x 15 variations.
	if summary.Records != 600 {
		t.Errorf("expected 600 records, got %d", summary.Records)
	}
	if summary.UniqueCommands != 40 {
		t.Errorf("expected 40 unique commands, got %d", summary.UniqueCommands)
	}

	f, err := os.Open(summary.OutputFile)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	if !scanner.Scan() {
		t.Fatal("output file is empty")
	}
	var rec models.DatasetRecord
	if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
		t.Fatalf("first line is not valid JSON: %v", err)
	}
	if rec.ID != "kali_security_00000000" {
		t.Errorf("unexpected first id: %s", rec.ID)
	}
	if len(rec.Input.Tokens) == 0 || rec.Input.Tokens[0] != "<sys>" {
		t.Errorf("input tokens should be system framed: %v", rec.Input.Tokens)
	}
	if len(rec.Output.Tokens) == 0 || rec.Output.Tokens[0] != "<cmd>" {
		t.Errorf("output tokens should be command framed: %v", rec.Output.Tokens)
	}
	if len(rec.Output.BinaryInt8) != 32 {
		t.Errorf("kali int8 width should be 32, got %d", len(rec.Output.BinaryInt8))
	}
	if rec.Input.TokenCount != len(rec.Input.Tokens) {
		t.Errorf("token_count %d does not match tokens %d", rec.Input.TokenCount, len(rec.Input.Tokens))
	}
	if rec.ErrorHandling.ErrorStatus != "E200" {
		t.Errorf("expected E200 status, got %s", rec.ErrorHandling.ErrorStatus)
	}
}

func TestGenerateTermux(t *testing.T) {
	g, _ := newTestGenerator(t)
	summary, err := g.Generate(context.Background(), "termux")
	if err != nil {
		t.Fatalf("generate termux: %v", err)
	}

	want := 0
	for _, cat := range corpus.TermuxCategories() {
		for _, c := range cat.Commands {
			want += len(corpus.TermuxVariations(c, cat.Name))
		}
	}
	if summary.Records != want {
		t.Errorf("expected %d records, got %d", want, summary.Records)
	}
	if !strings.Contains(filepath.Base(summary.OutputFile), "termux_authentic") {
		t.Errorf("unexpected output name: %s", summary.OutputFile)
	}
}

func TestGenerateAcademic(t *testing.T) {
	g, _ := newTestGenerator(t)
	summary, err := g.Generate(context.Background(), "academic")
	if err != nil {
		t.Fatalf("generate academic: %v", err)
	}
	if summary.Records != len(corpus.AcademicEntries())*5 {
		t.Errorf("expected 5 records per entry, got %d", summary.Records)
	}
}

func TestGenerateUnknownFamily(t *testing.T) {
	g, _ := newTestGenerator(t)
	_, err := g.Generate(context.Background(), "cobol")
	if err == nil || !strings.Contains(err.Error(), "unknown corpus family") {
		t.Errorf("expected unknown family error, got %v", err)
	}
}

func TestWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "test.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Write(map[string]string{"id": "a"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(map[string]string{"id": "b"}); err != nil {
		t.Fatal(err)
	}
	if w.Count() != 2 {
		t.Errorf("expected count 2, got %d", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var obj map[string]string
	if err := json.Unmarshal([]byte(lines[1]), &obj); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if obj["id"] != "b" {
		t.Errorf("unexpected second record: %v", obj)
	}
}

func TestExtractorFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewExtractor()
	got := e.Fetch(context.Background(), Source{
		Name:     "nmap",
		URL:      srv.URL,
		Fallback: "Herramienta de seguridad Kali: nmap",
	})
	if got != "Herramienta de seguridad Kali: nmap" {
		t.Errorf("expected fallback text, got %q", got)
	}
}

func TestExtractorStripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><h1>nmap</h1><p>Network  scanner</p></body></html>"))
	}))
	defer srv.Close()

	e := NewExtractor()
	got := e.Fetch(context.Background(), Source{Name: "nmap", URL: srv.URL, Fallback: "x"})
	if got != "nmap Network scanner" {
		t.Errorf("expected stripped text, got %q", got)
	}
}

func TestKaliDocSources(t *testing.T) {
	sources := KaliDocSources(corpus.KaliTools())
	if len(sources) != 8 {
		t.Fatalf("expected 8 sources, got %d", len(sources))
	}
	for _, s := range sources {
		if !strings.HasPrefix(s.URL, "https://www.kali.org/tools/") {
			t.Errorf("unexpected url: %s", s.URL)
		}
		if s.Fallback == "" {
			t.Errorf("source %s has no fallback", s.Name)
		}
	}
}
