package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/razonbilstro/nucleus-service/internal/corpus"
	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/tokenizer"
)

// Families the generator knows how to produce.
var Families = []string{"kali", "termux", "shell", "academic"}

// familySources maps a family to its dataset name prefix and source label.
var familySources = map[string][2]string{
	"kali":     {"kali_security", "kali_security_tools"},
	"termux":   {"termux_authentic", "termux_official_docs"},
	"shell":    {"shell_command", "bash_official_manual"},
	"academic": {"academic_doc", "academic_documentation"},
}

// Generator turns corpus entries into hybrid semantic-binarized JSONL
// datasets: natural-language input, tokenized and scored, paired with the
// authentic command, its int8 encoding and its fuzzy tolerance block.
type Generator struct {
	corpus *corpus.Corpus
	tok    *tokenizer.Tokenizer
	repo   repository.Repository
	outDir string
	docs   map[string]string
}

func NewGenerator(c *corpus.Corpus, tok *tokenizer.Tokenizer, repo repository.Repository, outDir string) *Generator {
	return &Generator{
		corpus: c,
		tok:    tok,
		repo:   repo,
		outDir: outDir,
	}
}

// SetDocs attaches extracted documentation excerpts, keyed by tool name.
// Present excerpts land in record metadata.
func (g *Generator) SetDocs(docs map[string]string) {
	g.docs = docs
}

// Generate produces the JSONL dataset for one corpus family, registers it
// and returns the run summary.
func (g *Generator) Generate(ctx context.Context, family string) (*models.GenerationSummary, error) {
	names, ok := familySources[family]
	if !ok {
		return nil, fmt.Errorf("unknown corpus family: %s", family)
	}
	prefix, source := names[0], names[1]

	start := time.Now()
	name := fmt.Sprintf("%s_%s", prefix, start.Format("20060102_150405"))
	path := filepath.Join(g.outDir, name+".jsonl")

	w, err := NewWriter(path)
	if err != nil {
		return nil, err
	}

	slog.Info("Generating dataset", "corpus", family, "output", path)

	commands := make(map[string]struct{})
	var genErr error
	switch family {
	case "kali":
		genErr = g.generateKali(ctx, w, prefix, source, commands)
	case "termux":
		genErr = g.generateTermux(ctx, w, prefix, source, commands)
	case "shell":
		genErr = g.generateShell(ctx, w, prefix, source, commands)
	case "academic":
		genErr = g.generateAcademic(ctx, w, prefix, source, commands)
	}
	if genErr != nil {
		w.Close()
		return nil, fmt.Errorf("generating %s dataset: %w", family, genErr)
	}

	records, bytes := w.Count(), w.Bytes()
	if err := w.Close(); err != nil {
		return nil, err
	}

	if g.repo != nil {
		err := g.repo.Datasets().RegisterDataset(ctx, &models.DatasetInfo{
			Name:        name,
			Source:      source,
			RecordCount: records,
			FilePath:    path,
			SizeBytes:   bytes,
			CreatedAt:   start,
		})
		if err != nil {
			return nil, err
		}
	}

	summary := &models.GenerationSummary{
		Corpus:         family,
		Records:        records,
		UniqueCommands: len(commands),
		OutputFile:     path,
		Bytes:          bytes,
		Duration:       time.Since(start),
	}
	slog.Info("Dataset generated",
		"corpus", family,
		"records", summary.Records,
		"commands", summary.UniqueCommands,
		"bytes", summary.Bytes,
		"duration", summary.Duration)
	return summary, nil
}

func (g *Generator) generateKali(ctx context.Context, w *Writer, prefix, source string, commands map[string]struct{}) error {
	id := 0
	for _, tool := range g.corpus.Kali {
		for _, c := range tool.Commands {
			commands[c.Cmd] = struct{}{}
			for variation := 0; variation < corpus.KaliVariationsPerCommand; variation++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				input := corpus.KaliNaturalInput(tool.Name, c.Desc, tool.Category, variation)
				rec := &models.DatasetRecord{
					ID:        fmt.Sprintf("%s_%08d", prefix, id),
					Source:    source,
					Language:  "es_en_technical",
					CreatedAt: time.Now().UTC(),
					Input: models.InputData{
						RawInput:        input,
						Tokens:          g.inputTokens(input),
						SemanticType:    corpus.KaliSemanticType(tool.Category),
						Intent:          corpus.KaliIntent(tool.Name, c.Cmd),
						ComplexityScore: corpus.ComplexityScore(c.Cmd),
					},
					Output: models.OutputData{
						RawOutput: models.RawOutput{
							Command:          c.Cmd,
							Explanation:      fmt.Sprintf("%s - Herramienta oficial Kali Linux", c.Desc),
							ExecutionContext: "kali_linux_security_environment",
							ExpectedResult:   fmt.Sprintf("Ejecuta: %s", c.Cmd),
						},
						Tokens:     g.outputTokens(c.Cmd),
						BinaryInt8: corpus.KaliEncodeInt8(c.Cmd, tool.Name),
						FuzzyMapping: models.FuzzyMapping{
							ExactMatch:          c.Cmd,
							Variants:            corpus.KaliFuzzyVariants(c.Cmd, tool.Name),
							SimilarityThreshold: 0.75,
							EditDistanceMax:     2,
						},
					},
					Metadata: g.kaliMetadata(tool, c, variation),
					ErrorHandling: models.ErrorHandling{
						TypoVariants:   TypoVariants(input),
						ErrorStatus:    "E200",
						FuzzyThreshold: 0.8,
						E404Fallback:   "Herramienta no encontrada en Kali Linux",
					},
				}
				rec.Input.TokenCount = len(rec.Input.Tokens)
				if err := w.Write(rec); err != nil {
					return err
				}
				id++
			}
		}
	}
	return nil
}

func (g *Generator) kaliMetadata(tool corpus.Tool, c corpus.Command, variation int) map[string]interface{} {
	meta := map[string]interface{}{
		"tool":             tool.Name,
		"category":         tool.Category,
		"variation":        variation,
		"purpose":          corpus.KaliPurpose(tool.Name, tool.Category),
		"aliases":          corpus.KaliAliases(tool.Name),
		"complexity_level": corpus.ComplexityLevel(c.Cmd),
		"kali_version":     "2024.x",
	}
	if doc, ok := g.docs[tool.Name]; ok {
		if len(doc) > 200 {
			doc = doc[:200]
		}
		meta["documentation"] = doc
	}
	return meta
}

func (g *Generator) generateTermux(ctx context.Context, w *Writer, prefix, source string, commands map[string]struct{}) error {
	id := 0
	for _, cat := range g.corpus.Termux {
		for _, c := range cat.Commands {
			commands[c.Cmd] = struct{}{}
			for _, v := range corpus.TermuxVariations(c, cat.Name) {
				if err := ctx.Err(); err != nil {
					return err
				}
				rec := &models.DatasetRecord{
					ID:        fmt.Sprintf("%s_%08d", prefix, id),
					Source:    source,
					Language:  "bash_termux",
					CreatedAt: time.Now().UTC(),
					Input: models.InputData{
						RawInput:        v.NaturalInput,
						Tokens:          g.inputTokens(v.NaturalInput),
						SemanticType:    v.SemanticType,
						Intent:          v.Intent,
						ComplexityScore: corpus.ComplexityScore(c.Cmd),
					},
					Output: models.OutputData{
						RawOutput: models.RawOutput{
							Command:          c.Cmd,
							Explanation:      c.Desc,
							ExecutionContext: "termux_android_environment",
							ExpectedResult:   v.ExpectedOutput,
						},
						Tokens:     g.outputTokens(c.Cmd),
						BinaryInt8: corpus.TermuxEncodeInt8(c.Cmd),
						FuzzyMapping: models.FuzzyMapping{
							ExactMatch:          c.Cmd,
							Variants:            corpus.TermuxCommandVariants(c.Cmd),
							SimilarityThreshold: 0.7,
							EditDistanceMax:     2,
						},
					},
					Metadata: map[string]interface{}{
						"category":              cat.Name,
						"command_category":      c.Cat,
						"android_compatibility": "API_24_plus",
						"root_required":         false,
						"network_required":      corpus.TermuxRequiresNetwork(c.Cmd),
						"storage_access":        corpus.TermuxRequiresStorage(c.Cmd),
						"dependencies":          corpus.TermuxDependencies(c.Cmd),
						"aliases":               corpus.TermuxAliases(v.NaturalInput),
						"error_info":            v.ErrorInfo,
					},
					ErrorHandling: models.ErrorHandling{
						TypoVariants:   corpus.TermuxTypos(v.NaturalInput),
						ErrorStatus:    "E200",
						FuzzyThreshold: 0.75,
						E404Fallback:   "Comando no encontrado en documentación Termux auténtica",
					},
				}
				rec.Input.TokenCount = len(rec.Input.Tokens)
				if err := w.Write(rec); err != nil {
					return err
				}
				id++
			}
		}
	}
	return nil
}

var shellComplexities = []string{"beginner", "intermediate", "advanced"}

func (g *Generator) generateShell(ctx context.Context, w *Writer, prefix, source string, commands map[string]struct{}) error {
	id := 0
	for _, family := range g.corpus.Shell {
		for _, c := range family.Commands {
			commands[c.Cmd] = struct{}{}
			for _, level := range shellComplexities {
				for variation := 0; variation < 5; variation++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					input := corpus.ShellNaturalInput(c.Cmd, level, variation)
					rec := &models.DatasetRecord{
						ID:        fmt.Sprintf("%s_%08d", prefix, id),
						Source:    source,
						Language:  "bash_shell",
						CreatedAt: time.Now().UTC(),
						Input: models.InputData{
							RawInput:        input,
							Tokens:          g.inputTokens(input),
							SemanticType:    family.Name + "_operation",
							Intent:          corpus.ShellIntent(c.Cmd),
							ComplexityScore: corpus.ComplexityScore(c.Cmd),
						},
						Output: models.OutputData{
							RawOutput: models.RawOutput{
								Command:          c.Cmd,
								Explanation:      c.Desc,
								ExecutionContext: "bash_shell_environment",
								ExpectedResult:   c.Desc,
							},
							Tokens:     g.outputTokens(c.Cmd),
							BinaryInt8: corpus.ShellEncodeInt8(c.Cmd),
							FuzzyMapping: models.FuzzyMapping{
								ExactMatch:          c.Cmd,
								Variants:            shellVariants(c.Cmd),
								SimilarityThreshold: 0.75,
								EditDistanceMax:     2,
							},
						},
						Metadata: map[string]interface{}{
							"family":           family.Name,
							"command_category": c.Cat,
							"complexity_level": level,
							"manual_source":    "man.cx/bash(1)",
						},
						ErrorHandling: models.ErrorHandling{
							TypoVariants:   TypoVariants(input),
							ErrorStatus:    "E200",
							FuzzyThreshold: 0.75,
							E404Fallback:   "Comando no encontrado en base de datos",
						},
					}
					rec.Input.TokenCount = len(rec.Input.Tokens)
					if err := w.Write(rec); err != nil {
						return err
					}
					id++
				}
			}
		}
	}
	return nil
}

func (g *Generator) generateAcademic(ctx context.Context, w *Writer, prefix, source string, commands map[string]struct{}) error {
	id := 0
	for _, entry := range g.corpus.Academic {
		commands[entry.Title] = struct{}{}
		for i, input := range corpus.AcademicVariations(entry) {
			if err := ctx.Err(); err != nil {
				return err
			}
			outTokens := g.outputTokens(entry.Title)
			rec := &models.DatasetRecord{
				ID:        fmt.Sprintf("%s_%08d", prefix, id),
				Source:    source,
				Language:  entry.Language,
				CreatedAt: time.Now().UTC(),
				Input: models.InputData{
					RawInput:        input,
					Tokens:          g.inputTokens(input),
					SemanticType:    "academic_request",
					Intent:          corpus.AcademicIntent(i),
					ComplexityScore: corpus.ComplexityScore(input),
				},
				Output: models.OutputData{
					RawOutput: models.RawOutput{
						Command:          entry.Title,
						Explanation:      entry.Summary,
						ExecutionContext: "academic_reference",
						ExpectedResult:   entry.Citation,
					},
					Tokens:     outTokens,
					BinaryInt8: tokenizer.BinarizeInt8(outTokens),
					FuzzyMapping: models.FuzzyMapping{
						ExactMatch:          entry.Title,
						Variants:            academicVariants(entry.Title),
						SimilarityThreshold: 0.7,
						EditDistanceMax:     2,
					},
				},
				Metadata: map[string]interface{}{
					"citation": entry.Citation,
					"language": entry.Language,
				},
				ErrorHandling: models.ErrorHandling{
					TypoVariants:   TypoVariants(input),
					ErrorStatus:    "E200",
					FuzzyThreshold: 0.7,
					E404Fallback:   "Documento no encontrado en corpus académico",
				},
			}
			rec.Input.TokenCount = len(rec.Input.Tokens)
			if err := w.Write(rec); err != nil {
				return err
			}
			id++
		}
	}
	return nil
}

// inputTokens marks the natural-language side as a system-framed stream.
func (g *Generator) inputTokens(text string) []string {
	return append([]string{"<sys>"}, g.tok.Tokenize(text)...)
}

// outputTokens marks the command side.
func (g *Generator) outputTokens(cmd string) []string {
	return append([]string{"<cmd>"}, g.tok.Tokenize(cmd)...)
}

func shellVariants(cmd string) []string {
	variants := []string{cmd}
	if base, _, found := strings.Cut(cmd, " "); found {
		variants = append(variants, base)
	}
	return variants
}

func academicVariants(title string) []string {
	variants := []string{title}
	if spaced := strings.ReplaceAll(title, "_", " "); spaced != title {
		variants = append(variants, spaced)
	}
	return variants
}
