// Package sqlite implements the engine's durable store on a local SQLite
// file, for single-node deployments and tests. The production store lives
// in the sibling postgres package.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	// The engine writes from multiple goroutines in one process; a single
	// connection avoids SQLITE_BUSY without a retry loop.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS issues (
			signature          TEXT PRIMARY KEY,
			path               TEXT NOT NULL,
			method             TEXT NOT NULL,
			status_code        INTEGER NOT NULL,
			pattern            TEXT NOT NULL,
			service            TEXT NOT NULL,
			first_seen_at      TIMESTAMP NOT NULL,
			last_seen_at       TIMESTAMP NOT NULL,
			occurrence_count   INTEGER NOT NULL DEFAULT 0,
			status             TEXT NOT NULL,
			muted              BOOLEAN NOT NULL DEFAULT 0,
			last_alert_at      TIMESTAMP,
			normalizer_version INTEGER NOT NULL DEFAULT 1,
			sample             TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_status_last_seen ON issues (status, last_seen_at DESC)`,
		`CREATE TABLE IF NOT EXISTS audit_runs (
			id               TEXT PRIMARY KEY,
			services         TEXT NOT NULL,
			started_at       TIMESTAMP NOT NULL,
			completed_at     TIMESTAMP,
			logs_scanned     INTEGER NOT NULL DEFAULT 0,
			errors_found     INTEGER NOT NULL DEFAULT 0,
			new_issues       INTEGER NOT NULL DEFAULT 0,
			recurring_issues INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_runs_started ON audit_runs (started_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply sqlite schema: %w", err)
		}
	}
	return nil
}
