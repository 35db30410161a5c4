package logsource

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPSourceFetchErrorLogs(t *testing.T) {
	windowStart := time.Date(2026, 8, 29, 11, 45, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	t.Run("Successful Fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/services/api/logs" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("from"); got != windowStart.Format(time.RFC3339) {
				t.Errorf("unexpected from %q", got)
			}
			if got := r.URL.Query().Get("min_status"); got != "400" {
				t.Errorf("unexpected min_status %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `[
				{"method":"POST","path":"/users/42","status_code":500,"message":"boom","timestamp":"2026-08-29T11:50:00Z"},
				{"method":"GET","path":"/orders/7","status_code":404,"message":"gone","timestamp":"2026-08-29T11:55:00Z"}
			]`)
		}))
		defer server.Close()

		source := NewHTTPSource(server.URL, 5*time.Second, testLogger())
		occurrences, err := source.FetchErrorLogs(context.Background(), "api", windowStart, windowEnd)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(occurrences) != 2 {
			t.Fatalf("expected 2 occurrences, got %d", len(occurrences))
		}
		if occurrences[0].Service != "api" {
			t.Errorf("expected service to be stamped onto occurrences, got %q", occurrences[0].Service)
		}
		if occurrences[0].StatusCode != 500 || occurrences[0].Method != "POST" {
			t.Errorf("unexpected first occurrence %+v", occurrences[0])
		}
	})

	t.Run("Upstream Error Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "collector down", http.StatusBadGateway)
		}))
		defer server.Close()

		source := NewHTTPSource(server.URL, 5*time.Second, testLogger())
		if _, err := source.FetchErrorLogs(context.Background(), "api", windowStart, windowEnd); err == nil {
			t.Fatal("expected an error for a non-200 response")
		}
	})

	t.Run("Malformed Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"not":"an array"}`)
		}))
		defer server.Close()

		source := NewHTTPSource(server.URL, 5*time.Second, testLogger())
		if _, err := source.FetchErrorLogs(context.Background(), "api", windowStart, windowEnd); err == nil {
			t.Fatal("expected a decode error")
		}
	})
}
