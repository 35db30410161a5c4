package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/log-audit/internal/domain"
	"github.com/user/log-audit/internal/signature"
)

// AuditService wraps one full audit execution: record the run, scan every
// configured service, aggregate, reconcile, alert, finalize.
//
// The service does not guard against concurrent invocations; the scheduler
// that triggers it must ensure runs do not overlap.
type AuditService struct {
	source   domain.LogSource
	runs     domain.RunRepository
	ledger   *IssueLedger
	alerter  *Alerter
	builder  *signature.Builder
	services []string
	lookback time.Duration
	logger   *slog.Logger
}

// NewAuditService creates an AuditService scanning the given services over
// a fixed lookback window per run.
func NewAuditService(
	source domain.LogSource,
	runs domain.RunRepository,
	ledger *IssueLedger,
	alerter *Alerter,
	builder *signature.Builder,
	services []string,
	lookback time.Duration,
	logger *slog.Logger,
) *AuditService {
	return &AuditService{
		source:   source,
		runs:     runs,
		ledger:   ledger,
		alerter:  alerter,
		builder:  builder,
		services: services,
		lookback: lookback,
		logger:   logger.With("component", "audit_service"),
	}
}

// serviceScan is the outcome of scanning one service.
type serviceScan struct {
	service string
	agg     *Aggregator
	scanned int64
	err     error
}

// Run executes one audit. Only run-level failures (creating or finalizing
// the run record) are returned as errors; per-service fetch failures,
// per-signature persistence failures, and per-recipient delivery failures
// are logged and contained.
func (s *AuditService) Run(ctx context.Context) (*domain.RunSummary, error) {
	started := time.Now().UTC()
	run := &domain.AuditRun{
		ID:        uuid.NewString(),
		Services:  s.services,
		StartedAt: started,
	}
	if err := s.runs.InsertRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create audit run record: %w", err)
	}
	s.logger.Info("audit run started", "run_id", run.ID, "services", len(s.services), "lookback", s.lookback)

	windowEnd := started
	windowStart := started.Add(-s.lookback)

	// Each service gets its own goroutine and its own aggregator; partial
	// maps are merged afterwards so the hot path takes no locks.
	results := make([]serviceScan, len(s.services))
	var wg sync.WaitGroup
	for i, service := range s.services {
		wg.Add(1)
		go func(i int, service string) {
			defer wg.Done()
			results[i] = s.scanService(ctx, service, windowStart, windowEnd)
		}(i, service)
	}
	wg.Wait()

	merged := NewAggregator(s.builder)
	servicesScanned := 0
	for _, res := range results {
		if res.err != nil {
			s.logger.Error("service fetch failed, continuing without it",
				"run_id", run.ID, "service", res.service, "error", res.err)
			continue
		}
		servicesScanned++
		run.LogsScanned += res.scanned
		merged.Merge(res.agg)
	}

	groups := merged.Groups()
	run.ErrorsFound = len(groups)

	reconciled := s.ledger.Reconcile(ctx, groups)
	run.NewIssues = reconciled.NewIssues
	run.RecurringIssues = reconciled.RecurringIssues

	alertsSent := s.alerter.Dispatch(ctx, reconciled.AlertCandidates)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	if err := s.runs.FinalizeRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to finalize audit run record: %w", err)
	}

	summary := &domain.RunSummary{
		RunID:           run.ID,
		Duration:        completed.Sub(started),
		LogsScanned:     run.LogsScanned,
		ErrorsFound:     run.ErrorsFound,
		NewIssues:       run.NewIssues,
		RecurringIssues: run.RecurringIssues,
		AlertsSent:      alertsSent,
		ServicesChecked: len(s.services),
		ServicesScanned: servicesScanned,
	}
	s.logger.Info("audit run completed",
		"run_id", run.ID,
		"duration_ms", summary.Duration.Milliseconds(),
		"logs_scanned", summary.LogsScanned,
		"errors_found", summary.ErrorsFound,
		"new_issues", summary.NewIssues,
		"recurring_issues", summary.RecurringIssues,
		"alerts_sent", summary.AlertsSent,
		"services_scanned", fmt.Sprintf("%d/%d", servicesScanned, len(s.services)),
	)
	return summary, nil
}

func (s *AuditService) scanService(ctx context.Context, service string, windowStart, windowEnd time.Time) serviceScan {
	occurrences, err := s.source.FetchErrorLogs(ctx, service, windowStart, windowEnd)
	if err != nil {
		return serviceScan{service: service, err: err}
	}

	agg := NewAggregator(s.builder)
	for _, occ := range occurrences {
		agg.Add(occ)
	}
	return serviceScan{
		service: service,
		agg:     agg,
		scanned: int64(len(occurrences)),
	}
}
