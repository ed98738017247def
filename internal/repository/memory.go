package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/razonbilstro/nucleus-service/internal/models"
)

// MemoryRepository implements Repository entirely in memory. It backs
// tests and ephemeral runs where no database file is wanted; semantics
// mirror the SQL implementation.
type MemoryRepository struct {
	mu       sync.RWMutex
	keys     map[string]*models.APIKey
	usage    []*models.UsageEntry
	requests []*models.RequestLog
	eventLog []memoryEvent
	datasets map[string]*memoryDataset
	queries  []*models.QueryHistory
	metadata []*models.NucleusMetadata
}

type memoryEvent struct {
	At      time.Time
	Level   string
	Code    string
	Message string
	Meta    map[string]interface{}
}

type memoryDataset struct {
	info    *models.DatasetInfo
	records []*models.DatasetRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		keys:     make(map[string]*models.APIKey),
		datasets: make(map[string]*memoryDataset),
	}
}

func (r *MemoryRepository) Keys() KeyRepositoryInterface         { return r }
func (r *MemoryRepository) Usage() UsageRepositoryInterface      { return r }
func (r *MemoryRepository) Request() RequestRepositoryInterface  { return r }
func (r *MemoryRepository) Event() EventRepositoryInterface      { return r }
func (r *MemoryRepository) Datasets() DatasetRepositoryInterface { return r }
func (r *MemoryRepository) Queries() QueryRepositoryInterface    { return r }
func (r *MemoryRepository) Nucleus() NucleusRepositoryInterface  { return r }

func (r *MemoryRepository) InsertKey(ctx context.Context, key *models.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.keys[key.KeyID]; exists {
		return fmt.Errorf("key %s already exists", key.KeyID)
	}
	copied := *key
	r.keys[key.KeyID] = &copied
	return nil
}

func (r *MemoryRepository) GetKey(ctx context.Context, keyID string) (*models.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("key %s not found", keyID)
	}
	copied := *key
	return &copied, nil
}

func (r *MemoryRepository) IncrementUsage(ctx context.Context, keyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[keyID]
	if !ok {
		return fmt.Errorf("key %s not found", keyID)
	}
	key.UsageCount++
	return nil
}

func (r *MemoryRepository) CountActiveAdminKeys(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, key := range r.keys {
		if key.IsActive && strings.Contains(strings.Join(key.Permissions, ","), "admin") {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) LogUsage(ctx context.Context, entry *models.UsageEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	r.usage = append(r.usage, &copied)
	return nil
}

func (r *MemoryRepository) GetUsageStats(ctx context.Context, keyID string) ([]*models.UsageStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := make(map[string]*models.UsageStat)
	var order []string
	for _, entry := range r.usage {
		if entry.KeyID != keyID {
			continue
		}
		stat, ok := totals[entry.Endpoint]
		if !ok {
			stat = &models.UsageStat{Endpoint: entry.Endpoint}
			totals[entry.Endpoint] = stat
			order = append(order, entry.Endpoint)
		}
		// AvgProcessingTime accumulates the sum until the final pass.
		stat.Requests++
		stat.AvgProcessingTime += entry.ProcessingTime
	}

	stats := make([]*models.UsageStat, 0, len(order))
	for _, endpoint := range order {
		stat := totals[endpoint]
		stat.AvgProcessingTime /= float64(stat.Requests)
		stats = append(stats, stat)
	}
	return stats, nil
}

func (r *MemoryRepository) LogRequest(ctx context.Context, req *models.RequestLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *req
	r.requests = append(r.requests, &copied)
	return nil
}

func (r *MemoryRepository) GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := make([]*models.RequestLog, 0, limit)
	for i := len(r.requests) - 1; i >= 0 && len(logs) < limit; i-- {
		copied := *r.requests[i]
		logs = append(logs, &copied)
	}
	return logs, nil
}

func (r *MemoryRepository) LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventLog = append(r.eventLog, memoryEvent{
		At:      time.Now(),
		Level:   level,
		Code:    code,
		Message: msg,
		Meta:    meta,
	})
	return nil
}

// EventCodes returns the logged event codes in order, for assertions.
func (r *MemoryRepository) EventCodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, len(r.eventLog))
	for i, ev := range r.eventLog {
		codes[i] = ev.Code
	}
	return codes
}

func (r *MemoryRepository) SaveDataset(ctx context.Context, name, source string, records []*models.DatasetRecord) (*models.DatasetInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.datasets[name]; exists {
		return nil, fmt.Errorf("dataset %s already exists", name)
	}

	info := &models.DatasetInfo{
		Name:        name,
		Source:      source,
		RecordCount: len(records),
		CreatedAt:   time.Now(),
	}
	stored := make([]*models.DatasetRecord, len(records))
	copy(stored, records)
	r.datasets[name] = &memoryDataset{info: info, records: stored}
	copied := *info
	return &copied, nil
}

func (r *MemoryRepository) RegisterDataset(ctx context.Context, info *models.DatasetInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *info
	if existing, ok := r.datasets[info.Name]; ok {
		existing.info = &copied
		return nil
	}
	r.datasets[info.Name] = &memoryDataset{info: &copied}
	return nil
}

func (r *MemoryRepository) GetDataset(ctx context.Context, name string) (*models.DatasetInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset %s not found", name)
	}
	copied := *ds.info
	return &copied, nil
}

func (r *MemoryRepository) ReadRecords(ctx context.Context, name string, limit int) ([]*models.DatasetRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset %s not found", name)
	}
	records := ds.records
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	out := make([]*models.DatasetRecord, len(records))
	copy(out, records)
	return out, nil
}

func (r *MemoryRepository) ListDatasets(ctx context.Context) ([]*models.DatasetInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]*models.DatasetInfo, 0, len(r.datasets))
	for _, ds := range r.datasets {
		copied := *ds.info
		infos = append(infos, &copied)
	}
	// Newest first, matching the SQL ordering.
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

func (r *MemoryRepository) DeleteDataset(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.datasets[name]; !ok {
		return fmt.Errorf("dataset %s not found", name)
	}
	delete(r.datasets, name)
	return nil
}

func (r *MemoryRepository) LogQuery(ctx context.Context, q *models.QueryHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *q
	copied.ID = int64(len(r.queries) + 1)
	r.queries = append(r.queries, &copied)
	return nil
}

func (r *MemoryRepository) GetRecentQueries(ctx context.Context, limit int) ([]*models.QueryHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	queries := make([]*models.QueryHistory, 0, limit)
	for i := len(r.queries) - 1; i >= 0 && len(queries) < limit; i-- {
		copied := *r.queries[i]
		queries = append(queries, &copied)
	}
	return queries, nil
}

func (r *MemoryRepository) SaveMetadata(ctx context.Context, m *models.NucleusMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *m
	copied.ID = int64(len(r.metadata) + 1)
	r.metadata = append(r.metadata, &copied)
	return nil
}

func (r *MemoryRepository) ListMetadata(ctx context.Context, limit int) ([]*models.NucleusMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.NucleusMetadata, 0, limit)
	for i := len(r.metadata) - 1; i >= 0 && len(out) < limit; i-- {
		copied := *r.metadata[i]
		out = append(out, &copied)
	}
	return out, nil
}

