package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/user/log-audit/internal/domain"
)

// ErrRunInFlight is returned by a trigger when an audit run is already
// executing. Runs never overlap within one process.
var ErrRunInFlight = errors.New("an audit run is already in flight")

// RunTrigger starts one audit run and blocks until it completes.
type RunTrigger func(ctx context.Context) (*domain.RunSummary, error)

const defaultListLimit = 50

// AdminHandler handles HTTP requests for the engine's admin surface.
type AdminHandler struct {
	trigger RunTrigger
	issues  domain.IssueRepository
	runs    domain.RunRepository
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(trigger RunTrigger, issues domain.IssueRepository, runs domain.RunRepository, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{trigger: trigger, issues: issues, runs: runs, logger: logger}
}

// HealthCheck is a simple health check endpoint.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TriggerRun starts an audit run and responds with its summary.
// POST /api/runs
func (h *AdminHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.trigger(r.Context())
	if errors.Is(err, ErrRunInFlight) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("triggered audit run failed", "error", err)
		http.Error(w, "audit run failed", http.StatusInternalServerError)
		return
	}
	h.respondWithJSON(w, http.StatusOK, summary)
}

// ListIssues returns issues, optionally filtered by status.
// GET /api/issues?status=new,recurring&limit=50
func (h *AdminHandler) ListIssues(w http.ResponseWriter, r *http.Request) {
	var statuses []domain.IssueStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			switch domain.IssueStatus(s) {
			case domain.IssueStatusNew, domain.IssueStatusRecurring, domain.IssueStatusResolved, domain.IssueStatusIgnored:
				statuses = append(statuses, domain.IssueStatus(s))
			default:
				http.Error(w, "invalid status "+s, http.StatusBadRequest)
				return
			}
		}
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	issues, err := h.issues.ListByStatus(r.Context(), statuses, limit)
	if err != nil {
		h.logger.Error("failed to list issues", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if issues == nil {
		issues = []*domain.Issue{}
	}
	h.respondWithJSON(w, http.StatusOK, issues)
}

// ListRuns returns the most recent audit runs.
// GET /api/runs?limit=20
func (h *AdminHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	runs, err := h.runs.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*domain.AuditRun{}
	}
	h.respondWithJSON(w, http.StatusOK, runs)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		http.Error(w, "invalid limit parameter", http.StatusBadRequest)
		return 0, false
	}
	return limit, true
}

func (h *AdminHandler) respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
