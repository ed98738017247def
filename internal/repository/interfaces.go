package repository

import (
	"context"

	"github.com/razonbilstro/nucleus-service/internal/models"
)

// Repository aggregates all repository interfaces
type Repository interface {
	Keys() KeyRepositoryInterface
	Usage() UsageRepositoryInterface
	Request() RequestRepositoryInterface
	Event() EventRepositoryInterface
	Datasets() DatasetRepositoryInterface
	Queries() QueryRepositoryInterface
	Nucleus() NucleusRepositoryInterface
}

// KeyRepositoryInterface defines API key storage operations
type KeyRepositoryInterface interface {
	InsertKey(ctx context.Context, key *models.APIKey) error
	GetKey(ctx context.Context, keyID string) (*models.APIKey, error)
	IncrementUsage(ctx context.Context, keyID string) error
	CountActiveAdminKeys(ctx context.Context) (int, error)
}

// UsageRepositoryInterface defines API usage logging operations
type UsageRepositoryInterface interface {
	LogUsage(ctx context.Context, entry *models.UsageEntry) error
	GetUsageStats(ctx context.Context, keyID string) ([]*models.UsageStat, error)
}

// RequestRepositoryInterface defines request logging operations
type RequestRepositoryInterface interface {
	LogRequest(ctx context.Context, req *models.RequestLog) error
	GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error)
}

// EventRepositoryInterface defines event logging operations
type EventRepositoryInterface interface {
	LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error
}

// DatasetRepositoryInterface defines dataset file and registry operations
type DatasetRepositoryInterface interface {
	SaveDataset(ctx context.Context, name, source string, records []*models.DatasetRecord) (*models.DatasetInfo, error)
	RegisterDataset(ctx context.Context, info *models.DatasetInfo) error
	GetDataset(ctx context.Context, name string) (*models.DatasetInfo, error)
	ReadRecords(ctx context.Context, name string, limit int) ([]*models.DatasetRecord, error)
	ListDatasets(ctx context.Context) ([]*models.DatasetInfo, error)
	DeleteDataset(ctx context.Context, name string) error
}

// QueryRepositoryInterface defines query history operations
type QueryRepositoryInterface interface {
	LogQuery(ctx context.Context, q *models.QueryHistory) error
	GetRecentQueries(ctx context.Context, limit int) ([]*models.QueryHistory, error)
}

// NucleusRepositoryInterface defines training metadata operations
type NucleusRepositoryInterface interface {
	SaveMetadata(ctx context.Context, m *models.NucleusMetadata) error
	ListMetadata(ctx context.Context, limit int) ([]*models.NucleusMetadata, error)
}
