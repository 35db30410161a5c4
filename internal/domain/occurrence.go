package domain

import "time"

// ErrorOccurrence is one error-level log record fetched from a backend
// service. Occurrences are ephemeral: they exist only long enough to be
// folded into an ErrorGroup and are never persisted individually.
type ErrorOccurrence struct {
	Service    string    `json:"service"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ErrorGroup is the per-run aggregate of every occurrence sharing one
// signature. Groups are built incrementally during a run and discarded
// after reconciliation against the issue ledger.
type ErrorGroup struct {
	Signature  string    `json:"signature"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	StatusCode int       `json:"status_code"`
	Pattern    string    `json:"pattern"`
	Service    string    `json:"service"`
	Count      int64     `json:"count"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	Sample     string    `json:"sample"`
}
