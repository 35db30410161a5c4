package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/user/log-audit/internal/domain"
)

// MockIssueRepository is an in-memory implementation of
// domain.IssueRepository for testing.
type MockIssueRepository struct {
	mu         sync.Mutex
	Issues     map[string]*domain.Issue
	GetErr     error
	UpsertErr  error
	MarkErr    error
	ListErr    error
	UpsertErrs map[string]error // per-signature upsert failures
	Upserts    []string         // signatures in upsert order
	Marked     []string
	MarkedAt   time.Time
}

func NewMockIssueRepository() *MockIssueRepository {
	return &MockIssueRepository{Issues: make(map[string]*domain.Issue)}
}

// Seed stores a copy of the issue, bypassing error injection.
func (m *MockIssueRepository) Seed(issue domain.Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Issues[issue.Signature] = &issue
}

// Get returns the stored issue without error injection, for assertions.
func (m *MockIssueRepository) Get(signature string) *domain.Issue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Issues[signature]
}

func (m *MockIssueRepository) GetBySignature(ctx context.Context, signature string) (*domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	issue, ok := m.Issues[signature]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *issue
	return &cp, nil
}

func (m *MockIssueRepository) Upsert(ctx context.Context, issue *domain.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if err, ok := m.UpsertErrs[issue.Signature]; ok {
		return err
	}
	cp := *issue
	m.Issues[issue.Signature] = &cp
	m.Upserts = append(m.Upserts, issue.Signature)
	return nil
}

func (m *MockIssueRepository) MarkAlerted(ctx context.Context, signatures []string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.Marked = append(m.Marked, signatures...)
	m.MarkedAt = at
	for _, sig := range signatures {
		if issue, ok := m.Issues[sig]; ok {
			t := at
			issue.LastAlertAt = &t
		}
	}
	return nil
}

func (m *MockIssueRepository) ListByStatus(ctx context.Context, statuses []domain.IssueStatus, limit int) ([]*domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []*domain.Issue
	for _, issue := range m.Issues {
		if len(statuses) > 0 {
			match := false
			for _, s := range statuses {
				if issue.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		cp := *issue
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MockRunRepository is an in-memory implementation of domain.RunRepository
// for testing.
type MockRunRepository struct {
	mu          sync.Mutex
	InsertErr   error
	FinalizeErr error
	Inserted    []*domain.AuditRun
	Finalized   []*domain.AuditRun
}

func (m *MockRunRepository) InsertRun(ctx context.Context, run *domain.AuditRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	cp := *run
	m.Inserted = append(m.Inserted, &cp)
	return nil
}

func (m *MockRunRepository) FinalizeRun(ctx context.Context, run *domain.AuditRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FinalizeErr != nil {
		return m.FinalizeErr
	}
	cp := *run
	m.Finalized = append(m.Finalized, &cp)
	return nil
}

func (m *MockRunRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.AuditRun, 0, len(m.Finalized))
	out = append(out, m.Finalized...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockLogSource is a configurable implementation of domain.LogSource for
// testing. Occurrences and errors are keyed by service name.
type MockLogSource struct {
	mu          sync.Mutex
	Occurrences map[string][]domain.ErrorOccurrence
	Errs        map[string]error
	Fetched     []string
}

func (m *MockLogSource) FetchErrorLogs(ctx context.Context, service string, windowStart, windowEnd time.Time) ([]domain.ErrorOccurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetched = append(m.Fetched, service)
	if err, ok := m.Errs[service]; ok {
		return nil, err
	}
	return m.Occurrences[service], nil
}

// MockNotifier records every delivery attempt and can fail per recipient.
type MockNotifier struct {
	mu         sync.Mutex
	Errs       map[string]error
	Deliveries []MockDelivery
}

// MockDelivery is one captured Notify call.
type MockDelivery struct {
	RecipientID string
	Title       string
	Body        string
	Data        map[string]string
}

func (m *MockNotifier) Notify(ctx context.Context, recipientID, title, body string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.Errs[recipientID]; ok {
		return err
	}
	m.Deliveries = append(m.Deliveries, MockDelivery{
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		Data:        data,
	})
	return nil
}

// Sent returns the recipient ids that received a delivery.
func (m *MockNotifier) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Deliveries))
	for _, d := range m.Deliveries {
		out = append(out, d.RecipientID)
	}
	return out
}
