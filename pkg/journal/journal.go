package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SyncRecord is one pipeline run
type SyncRecord struct {
	ID         int64
	Product    string
	Operation  string
	Status     string
	Written    int
	Unchanged  int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took
func (r SyncRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Journal stores artifact hashes and sync history
type Journal struct {
	db *sql.DB
}

// Open opens or creates the SQLite journal at path. ":memory:" opens a
// private in-memory journal.
func Open(path string) (*Journal, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// a second connection to :memory: would see an empty database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	j, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// New wraps an open database and creates the journal tables if needed
func New(db *sql.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	j := &Journal{db: db}
	if err := j.ensureTables(); err != nil {
		return nil, fmt.Errorf("failed to ensure journal tables: %w", err)
	}
	return j, nil
}

func (j *Journal) ensureTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS artifacts (
		path TEXT PRIMARY KEY,
		artifact TEXT NOT NULL,
		hash TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS syncs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product TEXT NOT NULL,
		operation TEXT NOT NULL,
		status TEXT NOT NULL,
		written INTEGER NOT NULL DEFAULT 0,
		unchanged INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_syncs_product ON syncs(product, id DESC);
	`

	_, err := j.db.Exec(query)
	return err
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Ping checks the database connection
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// ArtifactHash returns the hash last recorded for path
func (j *Journal) ArtifactHash(ctx context.Context, path string) (string, bool, error) {
	var hash string
	err := j.db.QueryRowContext(ctx, `SELECT hash FROM artifacts WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read artifact hash: %w", err)
	}
	return hash, true, nil
}

// RecordArtifact stores the hash written to path
func (j *Journal) RecordArtifact(ctx context.Context, artifact, path, hash string) error {
	query := `
		INSERT INTO artifacts (path, artifact, hash, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			artifact = excluded.artifact,
			hash = excluded.hash,
			updated_at = excluded.updated_at
	`

	if _, err := j.db.ExecContext(ctx, query, path, artifact, hash, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record artifact: %w", err)
	}
	return nil
}

// RecordSync appends a sync run and sets its ID
func (j *Journal) RecordSync(ctx context.Context, rec *SyncRecord) error {
	query := `
		INSERT INTO syncs (product, operation, status, written, unchanged, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := j.db.ExecContext(ctx, query,
		rec.Product, rec.Operation, rec.Status,
		rec.Written, rec.Unchanged, rec.Error,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record sync: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read sync id: %w", err)
	}
	rec.ID = id
	return nil
}

// LastSyncs returns the most recent run of every product, ordered by product
func (j *Journal) LastSyncs(ctx context.Context) ([]SyncRecord, error) {
	query := `
		SELECT id, product, operation, status, written, unchanged, COALESCE(error, ''), started_at, finished_at
		FROM syncs
		WHERE id IN (SELECT MAX(id) FROM syncs GROUP BY product)
		ORDER BY product
	`

	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query syncs: %w", err)
	}
	defer rows.Close()

	var records []SyncRecord
	for rows.Next() {
		var r SyncRecord
		if err := rows.Scan(&r.ID, &r.Product, &r.Operation, &r.Status,
			&r.Written, &r.Unchanged, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate syncs: %w", err)
	}
	return records, nil
}
