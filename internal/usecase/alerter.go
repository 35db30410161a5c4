package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/log-audit/internal/domain"
)

const (
	// maxAlertIssues bounds how many issues one notification enumerates.
	maxAlertIssues = 5
	// maxAlertBodyLen bounds the rendered notification body.
	maxAlertBodyLen = 2000
)

// Alerter decides which issues warrant a notification this run and delivers
// one notification per configured recipient. Deliveries run as independent
// tasks: one recipient failing never blocks the others.
type Alerter struct {
	repo       domain.IssueRepository
	notifier   domain.Notifier
	recipients []string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewAlerter creates an Alerter. notifyRate bounds deliveries per second
// across all recipients; zero or negative means unlimited.
func NewAlerter(repo domain.IssueRepository, notifier domain.Notifier, recipients []string, notifyRate float64, logger *slog.Logger) *Alerter {
	limit := rate.Inf
	if notifyRate > 0 {
		limit = rate.Limit(notifyRate)
	}
	return &Alerter{
		repo:       repo,
		notifier:   notifier,
		recipients: recipients,
		limiter:    rate.NewLimiter(limit, maxAlertIssues),
		logger:     logger.With("component", "alerter"),
	}
}

// Dispatch selects the alert-worthy issues from this run's candidates and
// delivers them. It returns the number of successful deliveries. After
// dispatch is attempted, every selected issue gets its last-alert timestamp
// stamped regardless of per-recipient outcomes, so a partially failed
// delivery does not re-alert the same transition next run.
func (a *Alerter) Dispatch(ctx context.Context, candidates []*domain.Issue) int {
	selected := selectAlertWorthy(candidates)
	if len(selected) == 0 {
		return 0
	}

	title, body, data := renderAlert(selected)

	var wg sync.WaitGroup
	var sent atomic.Int64
	for _, recipient := range a.recipients {
		wg.Add(1)
		go func(recipientID string) {
			defer wg.Done()
			if err := a.limiter.Wait(ctx); err != nil {
				a.logger.Error("alert delivery aborted", "recipient", recipientID, "error", err)
				return
			}
			if err := a.notifier.Notify(ctx, recipientID, title, body, data); err != nil {
				a.logger.Error("alert delivery failed", "recipient", recipientID, "error", err)
				return
			}
			sent.Add(1)
		}(recipient)
	}
	wg.Wait()

	signatures := make([]string, len(selected))
	for i, issue := range selected {
		signatures[i] = issue.Signature
	}
	if err := a.repo.MarkAlerted(ctx, signatures, time.Now().UTC()); err != nil {
		a.logger.Error("failed to stamp last-alert time on issues", "count", len(signatures), "error", err)
	}

	return int(sent.Load())
}

// selectAlertWorthy keeps candidates whose suppression flag is off. The
// ledger already restricted candidates to freshly created and freshly
// recurring issues; chronic issues never reach this point.
func selectAlertWorthy(candidates []*domain.Issue) []*domain.Issue {
	var selected []*domain.Issue
	for _, issue := range candidates {
		if issue.Muted {
			continue
		}
		selected = append(selected, issue)
	}
	return selected
}

func renderAlert(selected []*domain.Issue) (title, body string, data map[string]string) {
	newCount, recurringCount := 0, 0
	for _, issue := range selected {
		if issue.Status == domain.IssueStatusRecurring {
			recurringCount++
		} else {
			newCount++
		}
	}
	title = fmt.Sprintf("Log audit: %d new, %d recurring error(s)", newCount, recurringCount)

	var sb strings.Builder
	shown := len(selected)
	if shown > maxAlertIssues {
		shown = maxAlertIssues
	}
	for _, issue := range selected[:shown] {
		fmt.Fprintf(&sb, "%d %s %s (%dx)\n", issue.StatusCode, issue.Method, issue.Path, issue.OccurrenceCount)
	}
	if len(selected) > shown {
		fmt.Fprintf(&sb, "and %d more\n", len(selected)-shown)
	}
	body = sb.String()
	if len(body) > maxAlertBodyLen {
		body = body[:maxAlertBodyLen]
	}

	data = map[string]string{
		"new_issues":       fmt.Sprintf("%d", newCount),
		"recurring_issues": fmt.Sprintf("%d", recurringCount),
	}
	return title, body, data
}
