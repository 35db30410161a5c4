package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/log-audit/internal/domain"
)

// RunRepository implements domain.RunRepository for SQLite. The services
// list is stored as a comma-joined string; service names never contain
// commas (they are config keys, not user input).
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger.With("component", "sqlite_run_repository")}
}

func (r *RunRepository) InsertRun(ctx context.Context, run *domain.AuditRun) error {
	query := `
        INSERT INTO audit_runs (id, services, started_at, logs_scanned, errors_found, new_issues, recurring_issues)
        VALUES (?, ?, ?, 0, 0, 0, 0)
    `
	_, err := r.db.ExecContext(ctx, query, run.ID, strings.Join(run.Services, ","), run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit run %s: %w", run.ID, err)
	}
	return nil
}

func (r *RunRepository) FinalizeRun(ctx context.Context, run *domain.AuditRun) error {
	query := `
        UPDATE audit_runs
        SET completed_at = ?, logs_scanned = ?, errors_found = ?, new_issues = ?, recurring_issues = ?
        WHERE id = ?
    `
	res, err := r.db.ExecContext(ctx, query,
		run.CompletedAt, run.LogsScanned, run.ErrorsFound, run.NewIssues, run.RecurringIssues, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finalize audit run %s: %w", run.ID, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
        SELECT id, services, started_at, completed_at, logs_scanned, errors_found, new_issues, recurring_issues
        FROM audit_runs ORDER BY started_at DESC LIMIT ?
    `
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.AuditRun
	for rows.Next() {
		var run domain.AuditRun
		var services string
		var completed sql.NullTime
		if err := rows.Scan(
			&run.ID, &services, &run.StartedAt, &completed,
			&run.LogsScanned, &run.ErrorsFound, &run.NewIssues, &run.RecurringIssues,
		); err != nil {
			return nil, err
		}
		if services != "" {
			run.Services = strings.Split(services, ",")
		}
		if completed.Valid {
			run.CompletedAt = &completed.Time
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
