package services

import (
	"context"
	"strings"
	"testing"

	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/repository"
)

func TestDatasetServiceValidation(t *testing.T) {
	svc := NewDatasetService(repository.NewMemoryRepository(), nil)
	ctx := context.Background()

	if _, err := svc.GetDataset(ctx, ""); err == nil {
		t.Fatal("empty name should be rejected")
	} else if !strings.Contains(err.Error(), "required") {
		t.Errorf("error %q should mention the missing name", err)
	}

	for _, name := range []string{"../etc", "a/b", "a\\b", "a:b", "a?b"} {
		if _, err := svc.GetDataset(ctx, name); err == nil {
			t.Errorf("name %q should be rejected", name)
		} else if !strings.Contains(err.Error(), "invalid characters") {
			t.Errorf("error %q should mention invalid characters", err)
		}
	}

	if _, err := svc.SaveDataset(ctx, "valid", "manual", nil); err == nil {
		t.Fatal("empty records should be rejected")
	}
}

func TestDatasetServiceGenerateUnconfigured(t *testing.T) {
	svc := NewDatasetService(repository.NewMemoryRepository(), nil)

	if _, err := svc.Generate(context.Background(), "kali"); err == nil {
		t.Fatal("generation without a generator should fail")
	} else if !strings.Contains(err.Error(), "not configured") {
		t.Errorf("error %q should mention missing configuration", err)
	}
}

func TestDatasetServiceRoundTrip(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := NewDatasetService(repo, nil)
	ctx := context.Background()

	records := []*models.DatasetRecord{
		{ID: "r1", Source: "manual", Input: models.InputData{RawInput: "list files", Tokens: []string{"list", "files"}}},
		{ID: "r2", Source: "manual", Input: models.InputData{RawInput: "show processes", Tokens: []string{"show", "processes"}}},
	}

	info, err := svc.SaveDataset(ctx, "manual_pairs", "", records)
	if err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}
	if info.Source != "uploaded" {
		t.Errorf("source = %q, want uploaded default", info.Source)
	}
	if info.RecordCount != 2 {
		t.Errorf("record count = %d, want 2", info.RecordCount)
	}

	listed, err := svc.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("ListDatasets failed: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "manual_pairs" {
		t.Fatalf("listed = %+v, want manual_pairs", listed)
	}

	read, err := svc.ReadRecords(ctx, "manual_pairs", 1)
	if err != nil {
		t.Fatalf("ReadRecords failed: %v", err)
	}
	if len(read) != 1 || read[0].ID != "r1" {
		t.Fatalf("read = %+v, want first record", read)
	}

	if err := svc.DeleteDataset(ctx, "manual_pairs"); err != nil {
		t.Fatalf("DeleteDataset failed: %v", err)
	}
	if _, err := svc.GetDataset(ctx, "manual_pairs"); err == nil {
		t.Fatal("deleted dataset should not resolve")
	}
}
