package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/user/log-audit/internal/adapter/logsource"
	"github.com/user/log-audit/internal/adapter/repository/sqlite"
	"github.com/user/log-audit/internal/domain"
	"github.com/user/log-audit/internal/domain/mocks"
	"github.com/user/log-audit/internal/signature"
	"github.com/user/log-audit/internal/usecase"
)

// fixtureSource is a swappable set of canned log records served over the
// real HTTP log-source contract.
type fixtureSource struct {
	mu      sync.Mutex
	records map[string][]map[string]any
}

func (f *fixtureSource) set(service string, records []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records == nil {
		f.records = make(map[string][]map[string]any)
	}
	f.records[service] = records
}

func (f *fixtureSource) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		service := ""
		if parts := r.URL.Path; len(parts) > 0 {
			// /services/{service}/logs
			service = parts[len("/services/") : len(parts)-len("/logs")]
		}
		records := f.records[service]
		if records == nil {
			records = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	})
}

func record(method, path string, status int, message string, at time.Time) map[string]any {
	return map[string]any{
		"method":      method,
		"path":        path,
		"status_code": status,
		"message":     message,
		"timestamp":   at.UTC().Format(time.RFC3339),
	}
}

// TestAuditFlow exercises the whole pipeline against the real SQLite store
// and the real HTTP log-source adapter: first run creates issues and
// alerts, an idle run touches nothing, and a resolved issue that reappears
// alerts exactly once for the recurrence.
func TestAuditFlow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()
	issueRepo := sqlite.NewIssueRepository(db, logger)
	runRepo := sqlite.NewRunRepository(db, logger)

	fixture := &fixtureSource{}
	server := httptest.NewServer(fixture.handler())
	defer server.Close()
	source := logsource.NewHTTPSource(server.URL, 5*time.Second, logger)

	notifier := &mocks.MockNotifier{}
	builder := signature.NewBuilder()
	ledger := usecase.NewIssueLedger(issueRepo, logger)
	alerter := usecase.NewAlerter(issueRepo, notifier, []string{"ops-team"}, 0, logger)
	svc := usecase.NewAuditService(source, runRepo, ledger, alerter, builder, []string{"api"}, 15*time.Minute, logger)

	now := time.Now().UTC()
	dupSig := signature.Compute("/users/:id", "POST", 500, "duplicate key")

	// Run 1: two distinct errors, both new, one alert goes out.
	fixture.set("api", []map[string]any{
		record("POST", "/users/3f9e1b2a-1c4d-4e6f-8a9b-0c1d2e3f4a5b", 500, "duplicate key", now),
		record("POST", "/users/88412", 500, "duplicate key", now),
		record("POST", "/users/7b2c3d4e-5f60-4182-93a4-b5c6d7e8f901", 500, "duplicate key", now),
		record("GET", "/orders/451", 404, "order not found", now),
	})
	summary, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("run 1 failed: %v", err)
	}
	if summary.LogsScanned != 4 || summary.ErrorsFound != 2 || summary.NewIssues != 2 {
		t.Fatalf("unexpected run 1 summary %+v", summary)
	}
	if len(notifier.Sent()) != 1 {
		t.Fatalf("expected 1 notification after run 1, got %d", len(notifier.Sent()))
	}

	issue, err := issueRepo.GetBySignature(ctx, dupSig)
	if err != nil {
		t.Fatalf("failed to load issue: %v", err)
	}
	if issue.OccurrenceCount != 3 || issue.Status != domain.IssueStatusNew {
		t.Fatalf("unexpected issue state %+v", issue)
	}
	if issue.LastAlertAt == nil {
		t.Fatal("alerted issue must carry a last-alert timestamp")
	}

	// Run 2: no new log activity. Nothing changes, nothing alerts.
	fixture.set("api", nil)
	summary, err = svc.Run(ctx)
	if err != nil {
		t.Fatalf("run 2 failed: %v", err)
	}
	if summary.ErrorsFound != 0 || summary.NewIssues != 0 || summary.RecurringIssues != 0 {
		t.Fatalf("idle run must report zero findings, got %+v", summary)
	}
	if len(notifier.Sent()) != 1 {
		t.Fatalf("idle run must not alert, total deliveries %d", len(notifier.Sent()))
	}
	issue, _ = issueRepo.GetBySignature(ctx, dupSig)
	if issue.OccurrenceCount != 3 {
		t.Fatalf("idle run must not touch counts, got %d", issue.OccurrenceCount)
	}

	// Operator resolves the issue out of band.
	issue.Status = domain.IssueStatusResolved
	if err := issueRepo.Upsert(ctx, issue); err != nil {
		t.Fatalf("failed to resolve issue: %v", err)
	}

	// Run 3: the resolved error reappears and must alert as recurring.
	fixture.set("api", []map[string]any{
		record("POST", "/users/99999", 500, "duplicate key", now.Add(time.Minute)),
	})
	summary, err = svc.Run(ctx)
	if err != nil {
		t.Fatalf("run 3 failed: %v", err)
	}
	if summary.RecurringIssues != 1 {
		t.Fatalf("expected 1 recurring issue, got %+v", summary)
	}
	if len(notifier.Sent()) != 2 {
		t.Fatalf("recurrence must alert, total deliveries %d", len(notifier.Sent()))
	}
	issue, _ = issueRepo.GetBySignature(ctx, dupSig)
	if issue.Status != domain.IssueStatusRecurring || issue.OccurrenceCount != 4 {
		t.Fatalf("unexpected issue state after recurrence %+v", issue)
	}

	// Run 4: the error persists. Still recurring, but no fresh alert.
	fixture.set("api", []map[string]any{
		record("POST", "/users/10101", 500, "duplicate key", now.Add(2*time.Minute)),
	})
	summary, err = svc.Run(ctx)
	if err != nil {
		t.Fatalf("run 4 failed: %v", err)
	}
	if summary.RecurringIssues != 0 {
		t.Fatalf("an already-recurring issue must not count as a fresh recurrence, got %+v", summary)
	}
	if len(notifier.Sent()) != 2 {
		t.Fatalf("chronic issues must not re-alert, total deliveries %d", len(notifier.Sent()))
	}

	// Four runs should be on record, all finalized.
	runs, err := runRepo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 4 {
		t.Fatalf("expected 4 recorded runs, got %d", len(runs))
	}
	for _, run := range runs {
		if run.CompletedAt == nil {
			t.Errorf("run %s was never finalized", run.ID)
		}
	}
}
