package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/log-audit/internal/domain"
)

const issueColumns = `signature, path, method, status_code, pattern, service,
	first_seen_at, last_seen_at, occurrence_count, status, muted,
	last_alert_at, normalizer_version, sample`

// IssueRepository implements domain.IssueRepository for SQLite.
type IssueRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewIssueRepository creates a new SQLite issue repository.
func NewIssueRepository(db *sql.DB, logger *slog.Logger) *IssueRepository {
	return &IssueRepository{db: db, logger: logger.With("component", "sqlite_issue_repository")}
}

func (r *IssueRepository) GetBySignature(ctx context.Context, sig string) (*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE signature = ?`
	issue, err := scanIssue(r.db.QueryRowContext(ctx, query, sig))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue %s: %w", sig, err)
	}
	return issue, nil
}

func (r *IssueRepository) Upsert(ctx context.Context, issue *domain.Issue) error {
	query := `
        INSERT INTO issues (` + issueColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (signature) DO UPDATE SET
            last_seen_at = excluded.last_seen_at,
            occurrence_count = excluded.occurrence_count,
            status = excluded.status,
            sample = excluded.sample,
            normalizer_version = excluded.normalizer_version
    `
	_, err := r.db.ExecContext(ctx, query,
		issue.Signature, issue.Path, issue.Method, issue.StatusCode, issue.Pattern, issue.Service,
		issue.FirstSeenAt, issue.LastSeenAt, issue.OccurrenceCount, string(issue.Status), issue.Muted,
		issue.LastAlertAt, issue.NormalizerVersion, issue.Sample,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert issue %s: %w", issue.Signature, err)
	}
	return nil
}

func (r *IssueRepository) MarkAlerted(ctx context.Context, signatures []string, at time.Time) error {
	if len(signatures) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(signatures)), ",")
	args := make([]any, 0, len(signatures)+1)
	args = append(args, at)
	for _, sig := range signatures {
		args = append(args, sig)
	}
	query := `UPDATE issues SET last_alert_at = ? WHERE signature IN (` + placeholders + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark issues alerted: %w", err)
	}
	return nil
}

func (r *IssueRepository) ListByStatus(ctx context.Context, statuses []domain.IssueStatus, limit int) ([]*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues`
	var args []any
	if len(statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
		query += ` WHERE status IN (` + placeholders + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	query += ` ORDER BY last_seen_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var issues []*domain.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*domain.Issue, error) {
	var issue domain.Issue
	var status string
	var lastAlert sql.NullTime
	err := row.Scan(
		&issue.Signature, &issue.Path, &issue.Method, &issue.StatusCode, &issue.Pattern, &issue.Service,
		&issue.FirstSeenAt, &issue.LastSeenAt, &issue.OccurrenceCount, &status, &issue.Muted,
		&lastAlert, &issue.NormalizerVersion, &issue.Sample,
	)
	if err != nil {
		return nil, err
	}
	issue.Status = domain.IssueStatus(status)
	if lastAlert.Valid {
		issue.LastAlertAt = &lastAlert.Time
	}
	return &issue, nil
}
