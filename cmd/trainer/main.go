package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/razonbilstro/nucleus-service/internal/config"
	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/services"
	"github.com/razonbilstro/nucleus-service/internal/store"
)

func main() {
	var (
		envFile     = flag.String("env", "", "Optional .env file to load")
		datasetName = flag.String("dataset", "", "Registered dataset to train on (empty lists datasets)")
		limit       = flag.Int("limit", 0, "Max records to load, 0 for all")
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

	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := store.Open(cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := repository.NewSQLRepository(db, cfg.DatasetDir)
	ctx := context.Background()

	if *datasetName == "" {
		listDatasets(ctx, repo)
		return
	}

	trainer := services.NewTrainingService(cfg, repo)
	results, err := trainer.RunDualTraining(ctx, *datasetName, *limit)
	if err != nil {
		slog.Error("Training failed", "dataset", *datasetName, "error", err)
		os.Exit(1)
	}

	printResults(results)
}

func listDatasets(ctx context.Context, repo repository.Repository) {
	datasets, err := repo.Datasets().ListDatasets(ctx)
	if err != nil {
		slog.Error("Failed to list datasets", "error", err)
		os.Exit(1)
	}

	if len(datasets) == 0 {
		fmt.Println("No datasets registered. Run the generator first.")
		return
	}

	fmt.Printf("Registered datasets (%d):\n\n", len(datasets))
	for _, d := range datasets {
		fmt.Printf("  %-40s %6d records  %s\n", d.Name, d.RecordCount, d.Source)
	}
	fmt.Println("\nTrain with: trainer -dataset <name>")
}

func printResults(results *services.TrainingResults) {
	fmt.Printf("\nDual temporal training complete\n")
	fmt.Printf("  Session:  %s\n", results.SessionID)
	fmt.Printf("  Dataset:  %s (%d records)\n", results.DatasetType, results.DatasetRecords)
	fmt.Printf("  Epochs:\n")
	for _, e := range results.EpochResults {
		fmt.Printf("    %d  loss=%.4f acc=%.4f meta=%.2f vision=%.2f (%.2fs)\n",
			e.Epoch, e.Loss, e.Accuracy, e.MetacognitiveScore, e.VisionScore, e.EpochTime)
	}
	fmt.Printf("  Final:    loss=%.4f accuracy=%.4f\n", results.FinalLoss, results.FinalAccuracy)
	fmt.Printf("  Synergy:  %.2f (patterns=%d)\n",
		results.DualInsights.DualSynergy, results.DualInsights.PatternRecognition)
	for name, neuron := range results.Neurons {
		fmt.Printf("  Neuron %-14s %s  %d experiences\n", name+":", neuron.NodeID, neuron.Experiences)
	}
	fmt.Printf("  Results:  %s\n", results.ResultsFile)
}
