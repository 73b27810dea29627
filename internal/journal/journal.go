// Package journal records backfill runs in a SQLite database.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/schemafill/internal/backfill"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	model       TEXT NOT NULL,
	collection  TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	fields      TEXT NOT NULL DEFAULT '[]',
	scanned     INTEGER NOT NULL DEFAULT 0,
	modified    INTEGER NOT NULL DEFAULT 0,
	dry_run     INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
`

// Run is one journaled backfill of a single model.
type Run struct {
	ID         string          `json:"id"`
	Model      string          `json:"model"`
	Collection string          `json:"collection,omitempty"`
	Status     backfill.Status `json:"status"`
	Fields     []string        `json:"fields"`
	Scanned    int64           `json:"scanned"`
	Modified   int64           `json:"modified"`
	DryRun     bool            `json:"dry_run"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// FromResult builds a Run from a backfill result and the error returned
// alongside it.
func FromResult(res *backfill.Result, runErr error, started, finished time.Time) Run {
	r := Run{
		Model:      res.Model,
		Collection: res.Collection,
		Status:     res.Status,
		Fields:     res.Fields,
		Scanned:    res.Scanned,
		Modified:   res.Modified,
		DryRun:     res.DryRun,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record stores r and returns its id. A time-ordered UUID is assigned when
// r.ID is empty.
func (db *DB) Record(r Run) (string, error) {
	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("journal: new id: %w", err)
		}
		r.ID = id.String()
	}
	fields := r.Fields
	if fields == nil {
		fields = []string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("journal: encode fields: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO runs (id, model, collection, status, fields, scanned, modified, dry_run, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Model, r.Collection, string(r.Status), string(fieldsJSON),
		r.Scanned, r.Modified, r.DryRun, r.Error, r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("journal: insert run: %w", err)
	}
	return r.ID, nil
}

// Recent returns up to limit runs, newest first.
func (db *DB) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, model, collection, status, fields, scanned, modified, dry_run, error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	out := make([]Run, 0)
	for rows.Next() {
		var (
			r          Run
			status     string
			fieldsJSON string
		)
		if err := rows.Scan(&r.ID, &r.Model, &r.Collection, &status, &fieldsJSON,
			&r.Scanned, &r.Modified, &r.DryRun, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		r.Status = backfill.Status(status)
		if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
			return nil, fmt.Errorf("journal: decode fields of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
