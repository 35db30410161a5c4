package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuditMetrics holds all Prometheus metrics for the audit engine.
type AuditMetrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	LogsScanned     prometheus.Counter
	IssuesNew       prometheus.Counter
	IssuesRecurring prometheus.Counter
	AlertsSent      prometheus.Counter
	ServiceFetches  *prometheus.CounterVec
}

// NewAuditMetrics initializes and registers the Prometheus metrics.
func NewAuditMetrics() *AuditMetrics {
	return &AuditMetrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "log_audit",
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total number of audit runs by outcome.",
		}, []string{"status"}), // status: completed, failed
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "log_audit",
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of audit runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		LogsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "log_audit",
			Subsystem: "engine",
			Name:      "logs_scanned_total",
			Help:      "Total number of log records scanned across all runs.",
		}),
		IssuesNew: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "log_audit",
			Subsystem: "ledger",
			Name:      "issues_new_total",
			Help:      "Total number of newly created issues.",
		}),
		IssuesRecurring: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "log_audit",
			Subsystem: "ledger",
			Name:      "issues_recurring_total",
			Help:      "Total number of resolved issues that recurred.",
		}),
		AlertsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "log_audit",
			Subsystem: "alerter",
			Name:      "alerts_sent_total",
			Help:      "Total number of successful alert deliveries.",
		}),
		ServiceFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "log_audit",
			Subsystem: "logsource",
			Name:      "service_fetches_total",
			Help:      "Total number of per-service log fetches by outcome.",
		}, []string{"status"}), // status: ok, error
	}
}
