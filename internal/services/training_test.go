package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/razonbilstro/nucleus-service/internal/config"
	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/repository"
)

func seedTrainingDataset(t *testing.T, repo *repository.MemoryRepository, name string, count int) {
	t.Helper()

	records := make([]*models.DatasetRecord, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, &models.DatasetRecord{
			ID:     fmt.Sprintf("rec_%d", i),
			Source: "kali_security_tools",
			Input: models.InputData{
				RawInput:        fmt.Sprintf("scan target %d", i),
				Tokens:          []string{"scan", "target", fmt.Sprintf("%d", i)},
				TokenCount:      3,
				ComplexityScore: 30 + i,
			},
			Output: models.OutputData{
				Tokens:     []string{"nmap", "-sV"},
				BinaryInt8: []int{110, 109, 97, 112, 32, 45, 115, 86},
			},
		})
	}
	if _, err := repo.Datasets().SaveDataset(context.Background(), name, "kali_security_tools", records); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}
}

func TestRunDualTraining(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seedTrainingDataset(t, repo, "kali_test", 20)

	cfg := &config.Config{
		SessionDir: t.TempDir(),
		ResultsDir: t.TempDir(),
	}
	svc := NewTrainingService(cfg, repo)

	results, err := svc.RunDualTraining(context.Background(), "kali_test", 0)
	if err != nil {
		t.Fatalf("RunDualTraining failed: %v", err)
	}

	if results.DatasetRecords != 20 {
		t.Errorf("dataset records = %d, want 20", results.DatasetRecords)
	}
	if results.DatasetType != "kali_security_tools" {
		t.Errorf("dataset type = %q, want kali_security_tools", results.DatasetType)
	}
	if len(results.EpochResults) != 3 {
		t.Fatalf("got %d epoch results, want 3", len(results.EpochResults))
	}
	if !results.DualObservation {
		t.Error("dual observation should be set")
	}

	// Observer score curves are deterministic per epoch.
	last := results.EpochResults[2]
	if math.Abs(last.MetacognitiveScore-0.89) > 1e-9 {
		t.Errorf("metacognitive score = %f, want 0.89", last.MetacognitiveScore)
	}
	if math.Abs(last.VisionScore-0.86) > 1e-9 {
		t.Errorf("vision score = %f, want 0.86", last.VisionScore)
	}

	insights := results.DualInsights
	if math.Abs(insights.DualSynergy-0.89) > 1e-9 {
		t.Errorf("dual synergy = %f, want 0.89", insights.DualSynergy)
	}
	if insights.PatternRecognition != 6 {
		t.Errorf("pattern recognition = %d, want 6 observations across both neurons", insights.PatternRecognition)
	}

	meta := results.Neurons["metacognitive"]
	if meta.NodeID == "" {
		t.Error("metacognitive neuron should keep its node ID after destruction")
	}
	if meta.Epochs != 3 {
		t.Errorf("metacognitive epochs = %d, want 3", meta.Epochs)
	}
	if meta.Experiences != 3 {
		t.Errorf("metacognitive experiences = %d, want 3", meta.Experiences)
	}

	// Results file written and parseable.
	if results.ResultsFile == "" {
		t.Fatal("results file path should be set")
	}
	data, err := os.ReadFile(results.ResultsFile)
	if err != nil {
		t.Fatalf("results file unreadable: %v", err)
	}
	var decoded TrainingResults
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("results file is not valid JSON: %v", err)
	}
	if decoded.SessionID != results.SessionID {
		t.Errorf("decoded session = %q, want %q", decoded.SessionID, results.SessionID)
	}

	// Each destroyed neuron leaves a session file behind.
	sessions, err := filepath.Glob(filepath.Join(cfg.SessionDir, "*.json"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d session files, want 2", len(sessions))
	}

	// Training leaves a metadata row for the query engine.
	rows, err := repo.Nucleus().ListMetadata(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListMetadata failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d metadata rows, want 1", len(rows))
	}
	if rows[0].DomainName != "kali_security_tools" {
		t.Errorf("metadata domain = %q", rows[0].DomainName)
	}
	if rows[0].ExperiencesCount != 6 {
		t.Errorf("metadata experiences = %d, want 6", rows[0].ExperiencesCount)
	}
}

func TestRunDualTrainingLimit(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seedTrainingDataset(t, repo, "kali_test", 20)

	cfg := &config.Config{
		SessionDir: t.TempDir(),
		ResultsDir: t.TempDir(),
	}
	svc := NewTrainingService(cfg, repo)

	results, err := svc.RunDualTraining(context.Background(), "kali_test", 5)
	if err != nil {
		t.Fatalf("RunDualTraining failed: %v", err)
	}
	if results.DatasetRecords != 5 {
		t.Errorf("dataset records = %d, want 5 with limit", results.DatasetRecords)
	}
}

func TestRunDualTrainingEmptyDataset(t *testing.T) {
	repo := repository.NewMemoryRepository()
	if err := repo.Datasets().RegisterDataset(context.Background(), &models.DatasetInfo{
		Name:   "empty",
		Source: "manual",
	}); err != nil {
		t.Fatalf("RegisterDataset failed: %v", err)
	}

	cfg := &config.Config{
		SessionDir: t.TempDir(),
		ResultsDir: t.TempDir(),
	}
	svc := NewTrainingService(cfg, repo)

	if _, err := svc.RunDualTraining(context.Background(), "empty", 0); err == nil {
		t.Fatal("expected error for empty dataset")
	}

	if _, err := svc.RunDualTraining(context.Background(), "missing", 0); err == nil {
		t.Fatal("expected error for missing dataset")
	}
}
