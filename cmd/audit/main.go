package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"github.com/user/log-audit/internal/adapter/logsource"
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

// audit runs one audit cycle and prints the run summary as JSON. It is
// meant for cron-style scheduling and manual operator use; the long-lived
// scheduler lives in cmd/auditd.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

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

	builder := signature.NewBuilder()
	ledger := usecase.NewIssueLedger(issueRepo, log)
	alerter := usecase.NewAlerter(issueRepo, notify, cfg.AlertRecipients, cfg.NotifyRatePerSec, log)
	svc := usecase.NewAuditService(source, runRepo, ledger, alerter, builder, cfg.Services, cfg.Lookback, log)

	summary, err := svc.Run(ctx)
	if err != nil {
		log.Error("audit run failed", "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
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
