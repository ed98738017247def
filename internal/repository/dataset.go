package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/store"
)

// DatasetRepository stores datasets as JSONL files under datasetRoot and
// registers each one in the datasets table.
type DatasetRepository struct {
	db          *store.DB
	datasetRoot string
}

func NewDatasetRepository(db *store.DB, datasetRoot string) *DatasetRepository {
	return &DatasetRepository{
		db:          db,
		datasetRoot: datasetRoot,
	}
}

func (r *DatasetRepository) datasetPath(name string) string {
	return filepath.Join(r.datasetRoot, name+".jsonl")
}

// SaveDataset writes records as JSONL and registers the dataset
func (r *DatasetRepository) SaveDataset(ctx context.Context, name, source string, records []*models.DatasetRecord) (*models.DatasetInfo, error) {
	if err := os.MkdirAll(r.datasetRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %v", err)
	}

	path := r.datasetPath(name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("dataset %s already exists", name)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset file: %v", err)
	}

	w := bufio.NewWriter(file)
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			file.Close()
			os.Remove(path)
			return nil, fmt.Errorf("failed to encode record %s: %v", rec.ID, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write dataset file: %v", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close dataset file: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %v", err)
	}

	di := &models.DatasetInfo{
		Name:        name,
		Source:      source,
		RecordCount: len(records),
		FilePath:    path,
		SizeBytes:   info.Size(),
		CreatedAt:   time.Now(),
	}
	if err := r.RegisterDataset(ctx, di); err != nil {
		return nil, err
	}
	return di, nil
}

// RegisterDataset inserts the registry row for an already-written file.
func (r *DatasetRepository) RegisterDataset(ctx context.Context, info *models.DatasetInfo) error {
	if r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO datasets(
		name, source, record_count, file_path, created_at) VALUES(?,?,?,?,?)`),
		info.Name, info.Source, info.RecordCount, info.FilePath,
		float64(info.CreatedAt.UnixNano())/1e9)
	if err != nil {
		return fmt.Errorf("failed to register dataset: %v", err)
	}
	return nil
}

// GetDataset retrieves registry info for a dataset
func (r *DatasetRepository) GetDataset(ctx context.Context, name string) (*models.DatasetInfo, error) {
	path := r.datasetPath(name)
	stat, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("dataset %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to access dataset file: %v", err)
	}

	info := &models.DatasetInfo{
		Name:      name,
		FilePath:  path,
		SizeBytes: stat.Size(),
		CreatedAt: stat.ModTime(),
	}

	if r.db != nil {
		row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT source, record_count, created_at
			FROM datasets WHERE name = ?`), name)
		var created float64
		if err := row.Scan(&info.Source, &info.RecordCount, &created); err == nil {
			info.CreatedAt = time.Unix(0, int64(created*1e9))
		}
	}
	return info, nil
}

// ReadRecords reads up to limit records from a dataset file (0 for all)
func (r *DatasetRepository) ReadRecords(ctx context.Context, name string, limit int) ([]*models.DatasetRecord, error) {
	path := r.datasetPath(name)
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("dataset %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %v", err)
	}
	defer file.Close()

	var records []*models.DatasetRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec models.DatasetRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, scanner.Err()
}

// ListDatasets lists all registered datasets
func (r *DatasetRepository) ListDatasets(ctx context.Context) ([]*models.DatasetInfo, error) {
	if r.db == nil {
		return r.listFromFiles()
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT name, source, record_count, file_path, created_at
		FROM datasets ORDER BY id DESC`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*models.DatasetInfo
	for rows.Next() {
		var info models.DatasetInfo
		var created float64
		if err := rows.Scan(&info.Name, &info.Source, &info.RecordCount, &info.FilePath, &created); err != nil {
			continue
		}
		info.CreatedAt = time.Unix(0, int64(created*1e9))
		if stat, err := os.Stat(info.FilePath); err == nil {
			info.SizeBytes = stat.Size()
		}
		datasets = append(datasets, &info)
	}
	return datasets, rows.Err()
}

func (r *DatasetRepository) listFromFiles() ([]*models.DatasetInfo, error) {
	entries, err := os.ReadDir(r.datasetRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.DatasetInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read dataset root: %v", err)
	}

	var datasets []*models.DatasetInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		datasets = append(datasets, &models.DatasetInfo{
			Name:      strings.TrimSuffix(entry.Name(), ".jsonl"),
			FilePath:  filepath.Join(r.datasetRoot, entry.Name()),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	return datasets, nil
}

// DeleteDataset removes the dataset file and its registry row
func (r *DatasetRepository) DeleteDataset(ctx context.Context, name string) error {
	path := r.datasetPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("dataset %s not found", name)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete dataset file: %v", err)
	}
	if r.db != nil {
		_, _ = r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM datasets WHERE name = ?`), name)
	}
	return nil
}
