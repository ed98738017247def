package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/razonbilstro/nucleus-service/internal/corpus"
)

const maxDocChars = 2000

// Source is one documentation page with its offline fallback text.
type Source struct {
	Name     string
	URL      string
	Fallback string
}

// Extractor fetches tool documentation politely: a hard request timeout,
// a fixed delay between fetches, and fallback text on any failure.
type Extractor struct {
	client *http.Client
	delay  time.Duration
}

func NewExtractor() *Extractor {
	return &Extractor{
		client: &http.Client{Timeout: 10 * time.Second},
		delay:  time.Second,
	}
}

// KaliDocSources lists the official documentation pages of the given tools.
func KaliDocSources(tools []corpus.Tool) []Source {
	sources := make([]Source, 0, len(tools))
	for _, t := range tools {
		pkg := t.Package
		if pkg == "" {
			pkg = t.Name
		}
		sources = append(sources, Source{
			Name:     t.Name,
			URL:      fmt.Sprintf("https://www.kali.org/tools/%s/", pkg),
			Fallback: fmt.Sprintf("Herramienta de seguridad Kali: %s", t.Name),
		})
	}
	return sources
}

// FetchAll retrieves every source in order, pausing between fetches.
// Failures degrade to the per-source fallback text.
func (e *Extractor) FetchAll(ctx context.Context, sources []Source) map[string]string {
	docs := make(map[string]string, len(sources))
	for i, src := range sources {
		docs[src.Name] = e.Fetch(ctx, src)
		if i < len(sources)-1 {
			select {
			case <-time.After(e.delay):
			case <-ctx.Done():
				for _, rest := range sources[i+1:] {
					docs[rest.Name] = rest.Fallback
				}
				return docs
			}
		}
	}
	return docs
}

// Fetch retrieves one source, returning its fallback on any failure.
func (e *Extractor) Fetch(ctx context.Context, src Source) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		slog.Warn("Documentation fetch failed, using fallback", "source", src.Name, "error", err)
		return src.Fallback
	}

	resp, err := e.client.Do(req)
	if err != nil {
		slog.Warn("Documentation fetch failed, using fallback", "source", src.Name, "error", err)
		return src.Fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Documentation fetch failed, using fallback", "source", src.Name, "status", resp.StatusCode)
		return src.Fallback
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		slog.Warn("Documentation read failed, using fallback", "source", src.Name, "error", err)
		return src.Fallback
	}

	text := stripHTML(string(body))
	if text == "" {
		return src.Fallback
	}
	if len(text) > maxDocChars {
		text = text[:maxDocChars]
	}
	return text
}

// stripHTML drops tags and collapses whitespace, keeping visible text.
// Tag boundaries count as whitespace so adjacent elements stay separated.
func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	lastSpace := true
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case inTag:
		case r == ' ' || r == '\n' || r == '\t' || r == '\r':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
