package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/user/log-audit/internal/domain"
	"github.com/user/log-audit/internal/signature"
)

// IssueLedger reconciles one run's error groups against the durable issue
// history. It owns the only engine-driven lifecycle transitions: creating
// an issue as "new" and reviving a resolved issue as "recurring".
type IssueLedger struct {
	repo   domain.IssueRepository
	logger *slog.Logger
}

// NewIssueLedger creates an IssueLedger backed by the given repository.
func NewIssueLedger(repo domain.IssueRepository, logger *slog.Logger) *IssueLedger {
	return &IssueLedger{
		repo:   repo,
		logger: logger.With("component", "issue_ledger"),
	}
}

// ReconcileResult summarizes one reconciliation pass. AlertCandidates holds
// the post-reconciliation state of every issue that was created or revived
// this run; whether a candidate actually alerts is the alerter's decision.
type ReconcileResult struct {
	NewIssues       int
	RecurringIssues int
	AlertCandidates []*domain.Issue
	Failed          int
}

// Reconcile applies every group to the ledger. A persistence failure on a
// single signature is logged and skipped; the group was never persisted, so
// the next run retries it naturally.
func (l *IssueLedger) Reconcile(ctx context.Context, groups map[string]*domain.ErrorGroup) ReconcileResult {
	var result ReconcileResult

	for sig, group := range groups {
		issue, err := l.repo.GetBySignature(ctx, sig)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			created := l.createIssue(ctx, group)
			if created == nil {
				result.Failed++
				continue
			}
			result.NewIssues++
			result.AlertCandidates = append(result.AlertCandidates, created)

		case err != nil:
			l.logger.Error("failed to look up issue, skipping signature for this run",
				"signature", sig, "service", group.Service, "error", err)
			result.Failed++

		default:
			recurred, err := l.updateIssue(ctx, issue, group)
			if err != nil {
				result.Failed++
				continue
			}
			if recurred != nil {
				result.RecurringIssues++
				result.AlertCandidates = append(result.AlertCandidates, recurred)
			}
		}
	}

	return result
}

func (l *IssueLedger) createIssue(ctx context.Context, group *domain.ErrorGroup) *domain.Issue {
	issue := &domain.Issue{
		Signature:         group.Signature,
		Path:              group.Path,
		Method:            group.Method,
		StatusCode:        group.StatusCode,
		Pattern:           group.Pattern,
		Service:           group.Service,
		FirstSeenAt:       group.FirstSeen,
		LastSeenAt:        group.LastSeen,
		OccurrenceCount:   group.Count,
		Status:            domain.IssueStatusNew,
		Muted:             false,
		NormalizerVersion: signature.Version,
		Sample:            group.Sample,
	}
	if err := l.repo.Upsert(ctx, issue); err != nil {
		l.logger.Error("failed to persist new issue, skipping signature for this run",
			"signature", group.Signature, "service", group.Service, "error", err)
		return nil
	}
	return issue
}

// updateIssue applies a re-observation. It returns the issue only when the
// observation revived a resolved issue; steady-state re-observations return
// nil because they are not alert candidates.
func (l *IssueLedger) updateIssue(ctx context.Context, issue *domain.Issue, group *domain.ErrorGroup) (*domain.Issue, error) {
	recurred := issue.Status == domain.IssueStatusResolved
	if recurred {
		issue.Status = domain.IssueStatusRecurring
	}

	// Occurrence count is additive across runs and never recomputed.
	issue.OccurrenceCount += group.Count
	if group.LastSeen.After(issue.LastSeenAt) {
		issue.LastSeenAt = group.LastSeen
	}
	issue.Sample = group.Sample
	issue.NormalizerVersion = signature.Version

	if err := l.repo.Upsert(ctx, issue); err != nil {
		l.logger.Error("failed to update issue, skipping signature for this run",
			"signature", issue.Signature, "service", issue.Service, "error", err)
		return nil, err
	}
	if recurred {
		return issue, nil
	}
	return nil, nil
}
