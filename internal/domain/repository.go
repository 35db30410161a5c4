package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("record not found")

// IssueRepository defines the durable store for Issues.
// This abstracts away the specific implementations (e.g., PostgreSQL, SQLite).
type IssueRepository interface {
	// GetBySignature returns the issue with the given signature, or
	// ErrNotFound if the signature has never been recorded.
	GetBySignature(ctx context.Context, signature string) (*Issue, error)

	// Upsert inserts the issue or, if the signature already exists,
	// overwrites its mutable fields. Upserts are idempotent and safe to
	// retry.
	Upsert(ctx context.Context, issue *Issue) error

	// MarkAlerted stamps the last-alert timestamp on every given signature.
	MarkAlerted(ctx context.Context, signatures []string, at time.Time) error

	// ListByStatus returns issues in the given states, most recently seen
	// first. An empty status list means all issues.
	ListByStatus(ctx context.Context, statuses []IssueStatus, limit int) ([]*Issue, error)
}

// RunRepository defines the durable store for AuditRuns.
type RunRepository interface {
	// InsertRun records the start of a run.
	InsertRun(ctx context.Context, run *AuditRun) error

	// FinalizeRun writes the run's completion time and accumulated totals.
	FinalizeRun(ctx context.Context, run *AuditRun) error

	// ListRecent returns the most recently started runs.
	ListRecent(ctx context.Context, limit int) ([]*AuditRun, error)
}

// LogSource fetches error-relevant log records for one service over a time
// window. Implementations own their request deadline so a stuck backend
// cannot stall a run indefinitely. Returned records may include entries
// below status 400; the engine filters those itself.
type LogSource interface {
	FetchErrorLogs(ctx context.Context, service string, windowStart, windowEnd time.Time) ([]ErrorOccurrence, error)
}

// Notifier delivers one notification to one recipient. Delivery is
// fire-and-forget from the engine's perspective: errors are reported but
// never retried here.
type Notifier interface {
	Notify(ctx context.Context, recipientID, title, body string, data map[string]string) error
}
