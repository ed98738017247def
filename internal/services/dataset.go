package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/razonbilstro/nucleus-service/internal/dataset"
	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/repository"
)

// DatasetService fronts the corpus generator and the dataset registry for
// the CLI and the REST handlers.
type DatasetService struct {
	repo      repository.Repository
	generator *dataset.Generator
}

func NewDatasetService(repo repository.Repository, generator *dataset.Generator) *DatasetService {
	return &DatasetService{
		repo:      repo,
		generator: generator,
	}
}

// Generate produces datasets for one corpus family, or for every family
// when "all" is given.
func (s *DatasetService) Generate(ctx context.Context, family string) ([]*models.GenerationSummary, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("dataset generation not configured")
	}

	families := []string{family}
	if family == "all" {
		families = dataset.Families
	}

	var summaries []*models.GenerationSummary
	for _, f := range families {
		summary, err := s.generator.Generate(ctx, f)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// SaveDataset stores externally supplied records as a named dataset and
// registers it.
func (s *DatasetService) SaveDataset(ctx context.Context, name, source string, records []*models.DatasetRecord) (*models.DatasetInfo, error) {
	if err := s.validateDatasetName(name); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("records are required")
	}
	if source == "" {
		source = "uploaded"
	}

	slog.Info("Saving dataset", "name", name, "source", source, "records", len(records))

	return s.repo.Datasets().SaveDataset(ctx, name, source, records)
}

// GetDataset returns registry information for one dataset.
func (s *DatasetService) GetDataset(ctx context.Context, name string) (*models.DatasetInfo, error) {
	if err := s.validateDatasetName(name); err != nil {
		return nil, err
	}
	return s.repo.Datasets().GetDataset(ctx, name)
}

// ReadRecords returns up to limit records from a dataset file.
func (s *DatasetService) ReadRecords(ctx context.Context, name string, limit int) ([]*models.DatasetRecord, error) {
	if err := s.validateDatasetName(name); err != nil {
		return nil, err
	}
	return s.repo.Datasets().ReadRecords(ctx, name, limit)
}

// ListDatasets returns the dataset registry, newest first.
func (s *DatasetService) ListDatasets(ctx context.Context) ([]*models.DatasetInfo, error) {
	return s.repo.Datasets().ListDatasets(ctx)
}

// DeleteDataset removes a dataset file and its registry row.
func (s *DatasetService) DeleteDataset(ctx context.Context, name string) error {
	if err := s.validateDatasetName(name); err != nil {
		return err
	}

	slog.Info("Deleting dataset", "name", name)

	return s.repo.Datasets().DeleteDataset(ctx, name)
}

func (s *DatasetService) validateDatasetName(name string) error {
	if name == "" {
		return fmt.Errorf("dataset name is required")
	}
	if strings.ContainsAny(name, "/\\:*?\"<>|") {
		return fmt.Errorf("dataset name contains invalid characters")
	}
	return nil
}
