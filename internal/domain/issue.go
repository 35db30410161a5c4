package domain

import "time"

// IssueStatus is the lifecycle state of an Issue.
type IssueStatus string

const (
	// IssueStatusNew marks an issue on its first observation. Re-observing
	// an issue that is still new does not change its status.
	IssueStatusNew IssueStatus = "new"
	// IssueStatusRecurring marks an issue that reappeared after an operator
	// had resolved it. Only the engine performs this transition.
	IssueStatusRecurring IssueStatus = "recurring"
	// IssueStatusResolved is set by operators out of band.
	IssueStatusResolved IssueStatus = "resolved"
	// IssueStatusIgnored is set by operators out of band. Counters on an
	// ignored issue keep advancing but it never alerts.
	IssueStatusIgnored IssueStatus = "ignored"
)

// Issue is the durable, cross-run record of one distinct error signature.
// Issues are keyed by signature, created on first observation, and never
// deleted automatically.
type Issue struct {
	Signature         string      `json:"signature"`
	Path              string      `json:"path"`
	Method            string      `json:"method"`
	StatusCode        int         `json:"status_code"`
	Pattern           string      `json:"pattern"`
	Service           string      `json:"service"`
	FirstSeenAt       time.Time   `json:"first_seen_at"`
	LastSeenAt        time.Time   `json:"last_seen_at"`
	OccurrenceCount   int64       `json:"occurrence_count"`
	Status            IssueStatus `json:"status"`
	Muted             bool        `json:"muted"`
	LastAlertAt       *time.Time  `json:"last_alert_at,omitempty"`
	NormalizerVersion int         `json:"normalizer_version"`
	Sample            string      `json:"sample"`
}
