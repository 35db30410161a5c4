package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/log-audit/internal/adapter/api/handler"
	"github.com/user/log-audit/internal/adapter/api/middleware"
	"github.com/user/log-audit/internal/domain"
)

// NewRouter creates the admin router: run trigger, issue/run listings,
// health, and Prometheus metrics. Authorization is the deployment's
// concern (a fronting proxy), not this router's.
func NewRouter(
	trigger handler.RunTrigger,
	issues domain.IssueRepository,
	runs domain.RunRepository,
	logger *slog.Logger,
) http.Handler {
	admin := handler.NewAdminHandler(trigger, issues, runs, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))

	r.Get("/health", admin.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/runs", admin.TriggerRun)
		r.Get("/runs", admin.ListRuns)
		r.Get("/issues", admin.ListIssues)
	})

	return r
}
