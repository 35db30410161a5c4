package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the engine's tables if they do not exist yet. The schema
// is small enough that idempotent DDL at startup beats a migration tool.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS issues (
			signature          TEXT PRIMARY KEY,
			path               TEXT NOT NULL,
			method             TEXT NOT NULL,
			status_code        INTEGER NOT NULL,
			pattern            TEXT NOT NULL,
			service            TEXT NOT NULL,
			first_seen_at      TIMESTAMPTZ NOT NULL,
			last_seen_at       TIMESTAMPTZ NOT NULL,
			occurrence_count   BIGINT NOT NULL DEFAULT 0,
			status             TEXT NOT NULL,
			muted              BOOLEAN NOT NULL DEFAULT FALSE,
			last_alert_at      TIMESTAMPTZ,
			normalizer_version INTEGER NOT NULL DEFAULT 1,
			sample             TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_status_last_seen ON issues (status, last_seen_at DESC)`,
		`CREATE TABLE IF NOT EXISTS audit_runs (
			id               UUID PRIMARY KEY,
			services         TEXT[] NOT NULL,
			started_at       TIMESTAMPTZ NOT NULL,
			completed_at     TIMESTAMPTZ,
			logs_scanned     BIGINT NOT NULL DEFAULT 0,
			errors_found     INTEGER NOT NULL DEFAULT 0,
			new_issues       INTEGER NOT NULL DEFAULT 0,
			recurring_issues INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_runs_started ON audit_runs (started_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
