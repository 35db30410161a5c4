// Package logsource implements the log-source adapters the audit engine
// fetches raw error records through.
package logsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/user/log-audit/internal/domain"
)

const defaultHTTPTimeout = 15 * time.Second

// HTTPSource fetches error logs from a log-collector HTTP API. The adapter
// owns its request timeout so a stuck backend cannot stall a run.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPSource creates an HTTPSource rooted at baseURL. A zero timeout
// falls back to the adapter default.
func NewHTTPSource(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("component", "http_log_source"),
	}
}

// logRecord is the collector's wire shape for one log line.
type logRecord struct {
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// FetchErrorLogs requests GET {base}/services/{service}/logs for the window.
// Records below status 400 may still come back; the engine filters them.
func (s *HTTPSource) FetchErrorLogs(ctx context.Context, service string, windowStart, windowEnd time.Time) ([]domain.ErrorOccurrence, error) {
	endpoint := fmt.Sprintf("%s/services/%s/logs", s.baseURL, url.PathEscape(service))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build log fetch request for %s: %w", service, err)
	}
	q := req.URL.Query()
	q.Set("from", windowStart.UTC().Format(time.RFC3339))
	q.Set("to", windowEnd.UTC().Format(time.RFC3339))
	q.Set("min_status", "400")
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("log fetch for %s failed: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("log fetch for %s returned status %d", service, resp.StatusCode)
	}

	var records []logRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode log records for %s: %w", service, err)
	}

	occurrences := make([]domain.ErrorOccurrence, len(records))
	for i, rec := range records {
		occurrences[i] = domain.ErrorOccurrence{
			Service:    service,
			Method:     rec.Method,
			Path:       rec.Path,
			StatusCode: rec.StatusCode,
			Message:    rec.Message,
			OccurredAt: rec.Timestamp,
		}
	}
	s.logger.Debug("fetched error logs", "service", service, "count", len(occurrences))
	return occurrences, nil
}
