package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

type DB struct {
	*sql.DB
	Dialect string
}

// Open connects to Postgres when databaseURL is set, otherwise to the
// SQLite file at path, and applies the schema.
func Open(databaseURL, path string) (*DB, error) {
	dialect := DialectSQLite
	dsn := path
	if databaseURL != "" {
		dialect = DialectPostgres
		dsn = databaseURL
	}

	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	wrapped := &DB{DB: db, Dialect: dialect}
	if err := wrapped.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return wrapped, nil
}

func (db *DB) createSchema() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.Dialect == DialectPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events(
			id ` + serial + `,
			ts REAL,
			level TEXT,
			code TEXT,
			msg TEXT,
			meta TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS requests(
			id ` + serial + `,
			ts REAL,
			request_id TEXT,
			source TEXT,
			operation TEXT,
			input TEXT,
			output TEXT,
			status TEXT,
			error TEXT,
			dur_ms REAL,
			worker_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys(
			key_id TEXT PRIMARY KEY,
			key_hash TEXT NOT NULL,
			user_id TEXT NOT NULL,
			permissions TEXT NOT NULL,
			usage_count INTEGER DEFAULT 0,
			rate_limit INTEGER DEFAULT 1000,
			created_at REAL,
			expires_at REAL,
			is_active INTEGER DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS api_usage(
			id ` + serial + `,
			key_id TEXT,
			endpoint TEXT,
			request_data TEXT,
			response_data TEXT,
			processing_time REAL,
			timestamp REAL
		)`,
		`CREATE TABLE IF NOT EXISTS datasets(
			id ` + serial + `,
			name TEXT UNIQUE,
			source TEXT,
			record_count INTEGER,
			file_path TEXT,
			created_at REAL
		)`,
		`CREATE TABLE IF NOT EXISTS query_history(
			id ` + serial + `,
			query_text TEXT,
			domain_used TEXT,
			response_generated TEXT,
			confidence_score REAL,
			execution_time REAL,
			timestamp REAL
		)`,
		`CREATE TABLE IF NOT EXISTS nucleus_metadata(
			id ` + serial + `,
			domain_name TEXT,
			temporal_node_id TEXT,
			training_timestamp REAL,
			precision_score REAL,
			loss_final REAL,
			experiences_count INTEGER,
			metadata_json TEXT
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Rebind rewrites ? placeholders to $n for Postgres. SQLite queries pass
// through untouched.
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) Event(level, code, msg string, meta map[string]interface{}) {
	m := ""
	if meta != nil {
		b, _ := json.Marshal(meta)
		m = string(b)
	}
	_, _ = db.Exec(db.Rebind(`INSERT INTO events(ts,level,code,msg,meta) VALUES(?,?,?,?,?)`),
		float64(time.Now().UnixNano())/1e9, level, code, msg, m)
}

func (db *DB) Req(start time.Time, requestID, source, operation, input, output string,
	dur time.Duration, status, errStr, workerID string) {
	_, _ = db.Exec(db.Rebind(`INSERT INTO requests(
		ts, request_id, source, operation, input, output, status, error, dur_ms, worker_id)
		VALUES(?,?,?,?,?,?,?,?,?,?)`),
		float64(start.UnixNano())/1e9, requestID, source, operation, input, output,
		status, errStr, float64(dur.Milliseconds()), workerID)
}
