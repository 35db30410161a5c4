package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/log-audit/internal/domain"
	"github.com/user/log-audit/internal/domain/mocks"
	"github.com/user/log-audit/internal/signature"
)

func newService(source *mocks.MockLogSource, issueRepo *mocks.MockIssueRepository, runRepo *mocks.MockRunRepository, notifier *mocks.MockNotifier, services []string) *AuditService {
	logger := testLogger()
	builder := signature.NewBuilder()
	ledger := NewIssueLedger(issueRepo, logger)
	alerter := NewAlerter(issueRepo, notifier, []string{"op-1"}, 0, logger)
	return NewAuditService(source, runRepo, ledger, alerter, builder, services, 15*time.Minute, logger)
}

func TestAuditServiceRun(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	t.Run("Full Run", func(t *testing.T) {
		source := &mocks.MockLogSource{Occurrences: map[string][]domain.ErrorOccurrence{
			"api": {
				occ("api", "POST", "/users/3f9e1b2a-1c4d-4e6f-8a9b-0c1d2e3f4a5b", 500, "duplicate key", base),
				occ("api", "POST", "/users/7b2c3d4e-5f60-4182-93a4-b5c6d7e8f901", 500, "duplicate key", base.Add(time.Second)),
				occ("api", "POST", "/users/11111111-2222-4333-8444-555566667777", 500, "duplicate key", base.Add(2*time.Second)),
				occ("api", "GET", "/orders/88412", 404, "order not found", base),
			},
		}}
		issueRepo := mocks.NewMockIssueRepository()
		runRepo := &mocks.MockRunRepository{}
		notifier := &mocks.MockNotifier{}
		svc := newService(source, issueRepo, runRepo, notifier, []string{"api"})

		summary, err := svc.Run(context.Background())
		if err != nil {
			t.Fatalf("expected run to succeed, got %v", err)
		}

		if summary.LogsScanned != 4 {
			t.Errorf("expected 4 logs scanned, got %d", summary.LogsScanned)
		}
		if summary.ErrorsFound != 2 {
			t.Errorf("expected 2 distinct errors, got %d", summary.ErrorsFound)
		}
		if summary.NewIssues != 2 || summary.RecurringIssues != 0 {
			t.Errorf("expected 2 new / 0 recurring, got %d / %d", summary.NewIssues, summary.RecurringIssues)
		}
		if summary.AlertsSent != 1 {
			t.Errorf("expected 1 alert delivery, got %d", summary.AlertsSent)
		}

		dupSig := signature.Compute("/users/:id", "POST", 500, "duplicate key")
		if issue := issueRepo.Get(dupSig); issue == nil || issue.OccurrenceCount != 3 {
			t.Errorf("expected duplicate-key issue with count 3, got %+v", issue)
		}

		if len(runRepo.Inserted) != 1 || len(runRepo.Finalized) != 1 {
			t.Fatalf("expected run record inserted and finalized exactly once")
		}
		final := runRepo.Finalized[0]
		if final.CompletedAt == nil {
			t.Error("finalized run must carry a completion time")
		}
		if final.LogsScanned != 4 || final.ErrorsFound != 2 || final.NewIssues != 2 || final.RecurringIssues != 0 {
			t.Errorf("unexpected finalized totals %+v", final)
		}
	})

	t.Run("Second Run With No New Data Is Idempotent", func(t *testing.T) {
		source := &mocks.MockLogSource{Occurrences: map[string][]domain.ErrorOccurrence{
			"api": {occ("api", "GET", "/orders/1", 404, "order not found", base)},
		}}
		issueRepo := mocks.NewMockIssueRepository()
		runRepo := &mocks.MockRunRepository{}
		svc := newService(source, issueRepo, runRepo, &mocks.MockNotifier{}, []string{"api"})

		if _, err := svc.Run(context.Background()); err != nil {
			t.Fatalf("run 1 failed: %v", err)
		}

		sig := signature.Compute("/orders/:id", "GET", 404, "order not found")
		countAfterRun1 := issueRepo.Get(sig).OccurrenceCount

		source.Occurrences = map[string][]domain.ErrorOccurrence{"api": nil}
		summary, err := svc.Run(context.Background())
		if err != nil {
			t.Fatalf("run 2 failed: %v", err)
		}

		if summary.ErrorsFound != 0 || summary.NewIssues != 0 || summary.RecurringIssues != 0 {
			t.Errorf("empty run must report zero findings, got %+v", summary)
		}
		if got := issueRepo.Get(sig).OccurrenceCount; got != countAfterRun1 {
			t.Errorf("empty run must not touch cumulative counts: %d != %d", got, countAfterRun1)
		}
	})

	t.Run("One Failing Service Does Not Abort The Run", func(t *testing.T) {
		source := &mocks.MockLogSource{
			Occurrences: map[string][]domain.ErrorOccurrence{
				"api":     {occ("api", "GET", "/a", 500, "boom", base)},
				"billing": {occ("billing", "GET", "/b", 502, "bad gateway", base)},
			},
			Errs: map[string]error{"payments": errors.New("connection refused")},
		}
		issueRepo := mocks.NewMockIssueRepository()
		runRepo := &mocks.MockRunRepository{}
		svc := newService(source, issueRepo, runRepo, &mocks.MockNotifier{}, []string{"api", "payments", "billing"})

		summary, err := svc.Run(context.Background())
		if err != nil {
			t.Fatalf("expected run to complete despite one outage, got %v", err)
		}

		if summary.LogsScanned != 2 {
			t.Errorf("expected totals from the healthy services only, got %d", summary.LogsScanned)
		}
		if summary.ServicesScanned != 2 || summary.ServicesChecked != 3 {
			t.Errorf("expected 2 of 3 services scanned, got %d of %d", summary.ServicesScanned, summary.ServicesChecked)
		}
		if len(runRepo.Finalized) != 1 {
			t.Error("run record must still be finalized")
		}
	})

	t.Run("Run Record Creation Failure Is Fatal", func(t *testing.T) {
		runRepo := &mocks.MockRunRepository{InsertErr: errors.New("relation audit_runs does not exist")}
		svc := newService(&mocks.MockLogSource{}, mocks.NewMockIssueRepository(), runRepo, &mocks.MockNotifier{}, []string{"api"})

		if _, err := svc.Run(context.Background()); err == nil {
			t.Fatal("expected a run-level error when the run record cannot be created")
		}
	})

	t.Run("Run Finalize Failure Is Fatal", func(t *testing.T) {
		runRepo := &mocks.MockRunRepository{FinalizeErr: errors.New("connection reset")}
		svc := newService(&mocks.MockLogSource{}, mocks.NewMockIssueRepository(), runRepo, &mocks.MockNotifier{}, []string{"api"})

		if _, err := svc.Run(context.Background()); err == nil {
			t.Fatal("expected a run-level error when the run record cannot be finalized")
		}
	})
}
