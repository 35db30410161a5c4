package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"github.com/user/log-audit/internal/adapter/api"
	"github.com/user/log-audit/internal/adapter/api/handler"
	"github.com/user/log-audit/internal/adapter/logsource"
	"github.com/user/log-audit/internal/adapter/metrics"
	"github.com/user/log-audit/internal/adapter/notifier"
	"github.com/user/log-audit/internal/adapter/repository/postgres"
	"github.com/user/log-audit/internal/adapter/repository/sqlite"
	"github.com/user/log-audit/internal/domain"
	"github.com/user/log-audit/internal/pkg/config"
	"github.com/user/log-audit/internal/pkg/logger"
	"github.com/user/log-audit/internal/signature"
	"github.com/user/log-audit/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

// auditd is the scheduler the engine itself refuses to be: it runs audits
// on an interval, serializes them so they never overlap in this process,
// and serves the admin API and Prometheus metrics.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting audit daemon", "services", cfg.Services, "interval", cfg.Interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	issueRepo, runRepo, db, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	source, err := buildLogSource(cfg, log)
	if err != nil {
		log.Error("failed to build log source", "driver", cfg.LogSourceDriver, "error", err)
		os.Exit(1)
	}

	notify, err := buildNotifier(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build notifier", "driver", cfg.NotifierDriver, "error", err)
		os.Exit(1)
	}

	m := metrics.NewAuditMetrics()
	builder := signature.NewBuilder()
	ledger := usecase.NewIssueLedger(issueRepo, log)
	alerter := usecase.NewAlerter(issueRepo, notify, cfg.AlertRecipients, cfg.NotifyRatePerSec, log)
	svc := usecase.NewAuditService(source, runRepo, ledger, alerter, builder, cfg.Services, cfg.Lookback, log)

	runner := &serialRunner{svc: svc, metrics: m}

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: api.NewRouter(runner.Run, issueRepo, runRepo, log),
	}
	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
			stop()
		}
	}()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

Loop:
	for {
		select {
		case <-ticker.C:
			if _, err := runner.Run(ctx); err != nil && !errors.Is(err, handler.ErrRunInFlight) {
				log.Error("scheduled audit run failed", "error", err)
			}
		case <-ctx.Done():
			log.Info("shutdown signal received, stopping scheduler")
			break Loop
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}

	log.Info("audit daemon shut down gracefully")
}

// serialRunner serializes audit runs within this process and feeds run
// outcomes into the Prometheus metrics.
type serialRunner struct {
	mu      sync.Mutex
	svc     *usecase.AuditService
	metrics *metrics.AuditMetrics
}

func (r *serialRunner) Run(ctx context.Context) (*domain.RunSummary, error) {
	if !r.mu.TryLock() {
		return nil, handler.ErrRunInFlight
	}
	defer r.mu.Unlock()

	summary, err := r.svc.Run(ctx)
	if err != nil {
		r.metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	r.metrics.RunsTotal.WithLabelValues("completed").Inc()
	r.metrics.RunDuration.Observe(summary.Duration.Seconds())
	r.metrics.LogsScanned.Add(float64(summary.LogsScanned))
	r.metrics.IssuesNew.Add(float64(summary.NewIssues))
	r.metrics.IssuesRecurring.Add(float64(summary.RecurringIssues))
	r.metrics.AlertsSent.Add(float64(summary.AlertsSent))
	r.metrics.ServiceFetches.WithLabelValues("ok").Add(float64(summary.ServicesScanned))
	r.metrics.ServiceFetches.WithLabelValues("error").Add(float64(summary.ServicesChecked - summary.ServicesScanned))
	return summary, nil
}

func buildStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.IssueRepository, domain.RunRepository, *sql.DB, error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewIssueRepository(db, log), postgres.NewRunRepository(db, log), db, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewIssueRepository(db, log), sqlite.NewRunRepository(db, log), db, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func buildLogSource(cfg *config.Config, log *slog.Logger) (domain.LogSource, error) {
	switch cfg.LogSourceDriver {
	case "http":
		if cfg.LogSourceURL == "" {
			return nil, fmt.Errorf("LOG_SOURCE_URL is required for the http log source")
		}
		return logsource.NewHTTPSource(cfg.LogSourceURL, cfg.LogSourceTimeout, log), nil
	case "elasticsearch":
		es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.ElasticsearchAddrs})
		if err != nil {
			return nil, err
		}
		return logsource.NewElasticsearchSource(es, cfg.ElasticsearchIndex, log), nil
	default:
		return nil, fmt.Errorf("unknown log source driver %q", cfg.LogSourceDriver)
	}
}

func buildNotifier(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.Notifier, error) {
	switch cfg.NotifierDriver {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return notifier.NewRedisNotifier(client, log), nil
	case "stdout":
		return notifier.NewStdoutNotifier(), nil
	default:
		return nil, fmt.Errorf("unknown notifier driver %q", cfg.NotifierDriver)
	}
}
