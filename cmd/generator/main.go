package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/razonbilstro/nucleus-service/internal/config"
	"github.com/razonbilstro/nucleus-service/internal/corpus"
	"github.com/razonbilstro/nucleus-service/internal/dataset"
	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/store"
	"github.com/razonbilstro/nucleus-service/internal/tokenizer"
)

func main() {
	var (
		envFile    = flag.String("env", "", "Optional .env file to load")
		corpusFlag = flag.String("corpus", "all", "Corpus family: kali, termux, shell, academic or all")
		fetchDocs  = flag.Bool("docs", false, "Fetch tool documentation pages before generating")
		outDir     = flag.String("out", "", "Output directory (defaults to DATASET_DIR)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = cfg.DatasetDir
	}

	families := []string{*corpusFlag}
	if *corpusFlag == "all" {
		families = dataset.Families
	}
	for _, f := range families {
		if !validFamily(f) {
			slog.Error("Unknown corpus family", "family", f, "valid", strings.Join(dataset.Families, ", "))
			os.Exit(1)
		}
	}

	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := store.Open(cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := repository.NewSQLRepository(db, cfg.DatasetDir)

	corp, err := corpus.Load(cfg.CorpusDir)
	if err != nil {
		slog.Error("Failed to load corpus overlays", "dir", cfg.CorpusDir, "error", err)
		os.Exit(1)
	}

	tok := tokenizer.New(0)
	generator := dataset.NewGenerator(corp, tok, repo, *outDir)

	ctx := context.Background()

	if *fetchDocs {
		extractor := dataset.NewExtractor()
		sources := dataset.KaliDocSources(corp.Kali)
		slog.Info("Fetching tool documentation", "sources", len(sources))
		generator.SetDocs(extractor.FetchAll(ctx, sources))
	}

	// Each family writes its own file, so they can run concurrently
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var summaries []*models.GenerationSummary

	for _, family := range families {
		family := family
		g.Go(func() error {
			summary, err := generator.Generate(gctx, family)
			if err != nil {
				return err
			}
			mu.Lock()
			summaries = append(summaries, summary)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Dataset generation failed", "error", err)
		os.Exit(1)
	}

	printSummaries(summaries)
}

func validFamily(name string) bool {
	for _, f := range dataset.Families {
		if f == name {
			return true
		}
	}
	return false
}

func printSummaries(summaries []*models.GenerationSummary) {
	total := 0
	fmt.Printf("\nGenerated %d dataset(s):\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Printf("  %-10s %6d records  %5d commands  %8d bytes  %v\n",
			s.Corpus, s.Records, s.UniqueCommands, s.Bytes, s.Duration.Truncate(time.Millisecond))
		total += s.Records
	}
	fmt.Printf("\nTotal records: %d\n", total)
}
