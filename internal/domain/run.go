package domain

import "time"

// AuditRun is the append-only record of one audit execution. It is created
// when the run starts and finalized exactly once when the run ends;
// CompletedAt stays nil until then.
type AuditRun struct {
	ID              string     `json:"id"`
	Services        []string   `json:"services"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	LogsScanned     int64      `json:"logs_scanned"`
	ErrorsFound     int        `json:"errors_found"`
	NewIssues       int        `json:"new_issues"`
	RecurringIssues int        `json:"recurring_issues"`
}

// RunSummary is the payload returned to whoever triggered a run. It is the
// only result surface the admin UI needs.
type RunSummary struct {
	RunID           string        `json:"run_id"`
	Duration        time.Duration `json:"duration_ms"`
	LogsScanned     int64         `json:"logs_scanned"`
	ErrorsFound     int           `json:"errors_found"`
	NewIssues       int           `json:"new_issues"`
	RecurringIssues int           `json:"recurring_issues"`
	AlertsSent      int           `json:"alerts_sent"`
	ServicesChecked int           `json:"services_checked"`
	ServicesScanned int           `json:"services_scanned"`
}
