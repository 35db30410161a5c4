package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Services is the list of backend services whose logs get audited.
	Services []string      `env:"AUDIT_SERVICES,required" envSeparator:","`
	Lookback time.Duration `env:"AUDIT_LOOKBACK" envDefault:"15m"`
	Interval time.Duration `env:"AUDIT_INTERVAL" envDefault:"15m"`

	// StoreDriver selects the durable store: "postgres" or "sqlite".
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	PostgresURL string `env:"POSTGRES_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"log-audit.db"`

	// LogSourceDriver selects where raw logs come from: "http" or
	// "elasticsearch".
	LogSourceDriver    string        `env:"LOG_SOURCE_DRIVER" envDefault:"http"`
	LogSourceURL       string        `env:"LOG_SOURCE_URL"`
	LogSourceTimeout   time.Duration `env:"LOG_SOURCE_TIMEOUT" envDefault:"15s"`
	ElasticsearchAddrs []string      `env:"ELASTICSEARCH_ADDRS" envSeparator:","`
	ElasticsearchIndex string        `env:"ELASTICSEARCH_INDEX" envDefault:"service-logs-*"`

	// NotifierDriver selects the delivery channel: "redis" or "stdout".
	NotifierDriver   string   `env:"NOTIFIER_DRIVER" envDefault:"stdout"`
	RedisAddr        string   `env:"REDIS_ADDR"`
	AlertRecipients  []string `env:"ALERT_RECIPIENTS" envSeparator:","`
	NotifyRatePerSec float64  `env:"NOTIFY_RATE_PER_SEC" envDefault:"10"`

	AdminAddr string `env:"ADMIN_ADDR" envDefault:":9091"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
