package repository

import (
	"context"
	"strings"
	"time"

	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/store"
)

// SQLRepository implements Repository over the store's SQL handle. The
// dataset sub-repository is file-backed with a registry table.
type SQLRepository struct {
	db          *store.DB
	keyRepo     KeyRepositoryInterface
	usageRepo   UsageRepositoryInterface
	requestRepo RequestRepositoryInterface
	eventRepo   EventRepositoryInterface
	datasetRepo DatasetRepositoryInterface
	queryRepo   QueryRepositoryInterface
	nucleusRepo NucleusRepositoryInterface
}

func NewSQLRepository(db *store.DB, datasetRoot string) Repository {
	return &SQLRepository{
		db:          db,
		keyRepo:     &SQLKeyRepository{db: db},
		usageRepo:   &SQLUsageRepository{db: db},
		requestRepo: &SQLRequestRepository{db: db},
		eventRepo:   &SQLEventRepository{db: db},
		datasetRepo: NewDatasetRepository(db, datasetRoot),
		queryRepo:   &SQLQueryRepository{db: db},
		nucleusRepo: &SQLNucleusRepository{db: db},
	}
}

func (r *SQLRepository) Keys() KeyRepositoryInterface         { return r.keyRepo }
func (r *SQLRepository) Usage() UsageRepositoryInterface      { return r.usageRepo }
func (r *SQLRepository) Request() RequestRepositoryInterface  { return r.requestRepo }
func (r *SQLRepository) Event() EventRepositoryInterface      { return r.eventRepo }
func (r *SQLRepository) Datasets() DatasetRepositoryInterface { return r.datasetRepo }
func (r *SQLRepository) Queries() QueryRepositoryInterface    { return r.queryRepo }
func (r *SQLRepository) Nucleus() NucleusRepositoryInterface  { return r.nucleusRepo }

// SQLKeyRepository handles API key storage
type SQLKeyRepository struct {
	db *store.DB
}

func (r *SQLKeyRepository) InsertKey(ctx context.Context, key *models.APIKey) error {
	active := 0
	if key.IsActive {
		active = 1
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO api_keys(
		key_id, key_hash, user_id, permissions, usage_count, rate_limit, created_at, expires_at, is_active)
		VALUES(?,?,?,?,?,?,?,?,?)`),
		key.KeyID, key.KeyHash, key.UserID, strings.Join(key.Permissions, ","),
		key.UsageCount, key.RateLimit,
		float64(key.CreatedAt.UnixNano())/1e9, float64(key.ExpiresAt.UnixNano())/1e9, active)
	return err
}

func (r *SQLKeyRepository) GetKey(ctx context.Context, keyID string) (*models.APIKey, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT key_id, key_hash, user_id, permissions,
		usage_count, rate_limit, created_at, expires_at, is_active
		FROM api_keys WHERE key_id = ?`), keyID)

	var key models.APIKey
	var perms string
	var created, expires float64
	var active int
	if err := row.Scan(&key.KeyID, &key.KeyHash, &key.UserID, &perms,
		&key.UsageCount, &key.RateLimit, &created, &expires, &active); err != nil {
		return nil, err
	}
	if perms != "" {
		key.Permissions = strings.Split(perms, ",")
	}
	key.CreatedAt = time.Unix(0, int64(created*1e9))
	key.ExpiresAt = time.Unix(0, int64(expires*1e9))
	key.IsActive = active != 0
	return &key, nil
}

func (r *SQLKeyRepository) IncrementUsage(ctx context.Context, keyID string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE api_keys SET usage_count = usage_count + 1 WHERE key_id = ?`), keyID)
	return err
}

func (r *SQLKeyRepository) CountActiveAdminKeys(ctx context.Context) (int, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(*) FROM api_keys
		WHERE is_active = 1 AND permissions LIKE ?`), "%admin%")
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SQLUsageRepository handles per-key usage logging
type SQLUsageRepository struct {
	db *store.DB
}

func (r *SQLUsageRepository) LogUsage(ctx context.Context, entry *models.UsageEntry) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO api_usage(
		key_id, endpoint, request_data, response_data, processing_time, timestamp)
		VALUES(?,?,?,?,?,?)`),
		entry.KeyID, entry.Endpoint, entry.RequestData, entry.ResponseData,
		entry.ProcessingTime, float64(entry.Timestamp.UnixNano())/1e9)
	return err
}

func (r *SQLUsageRepository) GetUsageStats(ctx context.Context, keyID string) ([]*models.UsageStat, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT endpoint, COUNT(*), AVG(processing_time)
		FROM api_usage WHERE key_id = ? GROUP BY endpoint`), keyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*models.UsageStat
	for rows.Next() {
		var s models.UsageStat
		if err := rows.Scan(&s.Endpoint, &s.Requests, &s.AvgProcessingTime); err == nil {
			stats = append(stats, &s)
		}
	}
	return stats, rows.Err()
}

// SQLRequestRepository handles request logging
type SQLRequestRepository struct {
	db *store.DB
}

func (r *SQLRequestRepository) LogRequest(ctx context.Context, req *models.RequestLog) error {
	r.db.Req(
		req.Timestamp,
		req.RequestID,
		req.Source,
		req.Operation,
		req.Input,
		req.Output,
		time.Duration(req.DurationMs)*time.Millisecond,
		req.Status,
		req.Error,
		req.WorkerID,
	)
	return nil
}

func (r *SQLRequestRepository) GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT ts, request_id, source, operation,
		input, output, status, error, dur_ms, worker_id
		FROM requests ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.RequestLog
	for rows.Next() {
		var log models.RequestLog
		var tsFloat float64

		if err := rows.Scan(
			&tsFloat, &log.RequestID, &log.Source, &log.Operation,
			&log.Input, &log.Output, &log.Status, &log.Error,
			&log.DurationMs, &log.WorkerID,
		); err == nil {
			log.Timestamp = time.Unix(0, int64(tsFloat*1e9))
			logs = append(logs, &log)
		}
	}

	return logs, nil
}

// SQLEventRepository handles event logging
type SQLEventRepository struct {
	db *store.DB
}

func (r *SQLEventRepository) LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error {
	r.db.Event(level, code, msg, meta)
	return nil
}

// SQLQueryRepository handles query history
type SQLQueryRepository struct {
	db *store.DB
}

func (r *SQLQueryRepository) LogQuery(ctx context.Context, q *models.QueryHistory) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO query_history(
		query_text, domain_used, response_generated, confidence_score, execution_time, timestamp)
		VALUES(?,?,?,?,?,?)`),
		q.QueryText, q.DomainUsed, q.ResponseGenerated, q.ConfidenceScore,
		q.ExecutionTime, float64(q.Timestamp.UnixNano())/1e9)
	return err
}

func (r *SQLQueryRepository) GetRecentQueries(ctx context.Context, limit int) ([]*models.QueryHistory, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT id, query_text, domain_used,
		response_generated, confidence_score, execution_time, timestamp
		FROM query_history ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []*models.QueryHistory
	for rows.Next() {
		var q models.QueryHistory
		var ts float64
		if err := rows.Scan(&q.ID, &q.QueryText, &q.DomainUsed, &q.ResponseGenerated,
			&q.ConfidenceScore, &q.ExecutionTime, &ts); err == nil {
			q.Timestamp = time.Unix(0, int64(ts*1e9))
			queries = append(queries, &q)
		}
	}
	return queries, rows.Err()
}

// SQLNucleusRepository handles training metadata rows
type SQLNucleusRepository struct {
	db *store.DB
}

func (r *SQLNucleusRepository) SaveMetadata(ctx context.Context, m *models.NucleusMetadata) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO nucleus_metadata(
		domain_name, temporal_node_id, training_timestamp, precision_score, loss_final,
		experiences_count, metadata_json)
		VALUES(?,?,?,?,?,?,?)`),
		m.DomainName, m.TemporalNodeID, float64(m.TrainingTimestamp.UnixNano())/1e9,
		m.PrecisionScore, m.LossFinal, m.ExperiencesCount, m.MetadataJSON)
	return err
}

func (r *SQLNucleusRepository) ListMetadata(ctx context.Context, limit int) ([]*models.NucleusMetadata, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT id, domain_name, temporal_node_id,
		training_timestamp, precision_score, loss_final, experiences_count, metadata_json
		FROM nucleus_metadata ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.NucleusMetadata
	for rows.Next() {
		var m models.NucleusMetadata
		var ts float64
		if err := rows.Scan(&m.ID, &m.DomainName, &m.TemporalNodeID, &ts,
			&m.PrecisionScore, &m.LossFinal, &m.ExperiencesCount, &m.MetadataJSON); err == nil {
			m.TrainingTimestamp = time.Unix(0, int64(ts*1e9))
			out = append(out, &m)
		}
	}
	return out, rows.Err()
}
