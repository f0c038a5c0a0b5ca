package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/ledger-backend/internal/platform/envutil"
)

type Config struct {
	Environment string `yaml:"environment"`
	Port        string `yaml:"port"`
	LogMode     string `yaml:"log_mode"`

	Database DatabaseConfig `yaml:"database"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Otel     OtelConfig     `yaml:"otel"`
}

type DatabaseConfig struct {
	Driver             string `yaml:"driver"`
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Name               string `yaml:"name"`
	SSLMode            string `yaml:"sslmode"`
	SQLitePath         string `yaml:"sqlite_path"`
	StatementTimeoutMS int    `yaml:"statement_timeout_ms"`
}

type LedgerConfig struct {
	MaxOperationAmount string `yaml:"max_operation_amount"`
	CASRetries         int    `yaml:"cas_retries"`
}

type RedisConfig struct {
	Addr         string `yaml:"addr"`
	LockExpiryMS int    `yaml:"lock_expiry_ms"`
}

type HTTPConfig struct {
	AllowedOrigins    []string `yaml:"allowed_origins"`
	RateLimitEnabled  bool     `yaml:"rate_limit_enabled"`
	RateLimitMax      int      `yaml:"rate_limit_max"`
	RateLimitWindowMS int      `yaml:"rate_limit_window_ms"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type OtelConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	Version      string  `yaml:"version"`
	SampleRatio  float64 `yaml:"sample_ratio"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	OTLPHeaders  string  `yaml:"otlp_headers"`
	OTLPInsecure bool    `yaml:"otlp_insecure"`
}

func defaultConfig() Config {
	return Config{
		Environment: "development",
		Port:        "8080",
		LogMode:     "development",
		Database: DatabaseConfig{
			Driver:             "postgres",
			Host:               "localhost",
			Port:               "5432",
			User:               "postgres",
			Name:               "ledger",
			SSLMode:            "disable",
			SQLitePath:         "ledger.db",
			StatementTimeoutMS: 5000,
		},
		Ledger: LedgerConfig{
			MaxOperationAmount: "1000000",
			CASRetries:         3,
		},
		Redis: RedisConfig{LockExpiryMS: 10000},
		HTTP: HTTPConfig{
			RateLimitEnabled:  true,
			RateLimitMax:      100,
			RateLimitWindowMS: 15 * 60 * 1000,
		},
		Metrics: MetricsConfig{Addr: ":9090"},
		Otel:    OtelConfig{ServiceName: "ledger-backend", SampleRatio: 1},
	}
}

// LoadConfig layers defaults, the optional CONFIG_FILE and the environment.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)

	db := &cfg.Database
	db.Driver = envutil.String("DB_DRIVER", db.Driver)
	db.Host = envutil.String("POSTGRES_HOST", db.Host)
	db.Port = envutil.String("POSTGRES_PORT", db.Port)
	db.User = envutil.String("POSTGRES_USER", db.User)
	db.Password = envutil.String("POSTGRES_PASSWORD", db.Password)
	db.Name = envutil.String("POSTGRES_NAME", db.Name)
	db.SSLMode = envutil.String("POSTGRES_SSLMODE", db.SSLMode)
	db.SQLitePath = envutil.String("SQLITE_PATH", db.SQLitePath)
	db.StatementTimeoutMS = envutil.Int("DB_STATEMENT_TIMEOUT_MS", db.StatementTimeoutMS)

	cfg.Ledger.MaxOperationAmount = envutil.String("LEDGER_MAX_OPERATION_AMOUNT", cfg.Ledger.MaxOperationAmount)
	cfg.Ledger.CASRetries = envutil.Int("LEDGER_CAS_RETRIES", cfg.Ledger.CASRetries)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.LockExpiryMS = envutil.Int("REDIS_LOCK_EXPIRY_MS", cfg.Redis.LockExpiryMS)

	cfg.HTTP.AllowedOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins)
	cfg.HTTP.RateLimitEnabled = envutil.Bool("RATE_LIMIT_ENABLED", cfg.HTTP.RateLimitEnabled)
	cfg.HTTP.RateLimitMax = envutil.Int("RATE_LIMIT_MAX", cfg.HTTP.RateLimitMax)
	cfg.HTTP.RateLimitWindowMS = envutil.Int("RATE_LIMIT_WINDOW_MS", cfg.HTTP.RateLimitWindowMS)

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Addr = envutil.String("METRICS_ADDR", cfg.Metrics.Addr)

	o := &cfg.Otel
	o.Enabled = envutil.Bool("OTEL_ENABLED", o.Enabled)
	o.ServiceName = envutil.String("OTEL_SERVICE_NAME", o.ServiceName)
	o.Version = envutil.String("OTEL_SERVICE_VERSION", o.Version)
	o.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", o.SampleRatio)
	o.OTLPEndpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", o.OTLPEndpoint)
	o.OTLPHeaders = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", o.OTLPHeaders)
	o.OTLPInsecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", o.OTLPInsecure)
}

func (c Config) validate() error {
	if _, err := c.MaxOperationAmount(); err != nil {
		return err
	}
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Ledger.CASRetries < 1 {
		return fmt.Errorf("LEDGER_CAS_RETRIES must be >= 1, got %d", c.Ledger.CASRetries)
	}
	if c.HTTP.RateLimitEnabled && (c.HTTP.RateLimitMax < 1 || c.HTTP.RateLimitWindowMS < 1) {
		return fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW_MS must be >= 1, got %d and %d",
			c.HTTP.RateLimitMax, c.HTTP.RateLimitWindowMS)
	}
	return nil
}

// MaxOperationAmount parses the configured per-operation ceiling.
func (c Config) MaxOperationAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.Ledger.MaxOperationAmount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid LEDGER_MAX_OPERATION_AMOUNT %q: %w", c.Ledger.MaxOperationAmount, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("LEDGER_MAX_OPERATION_AMOUNT must be positive, got %s", d)
	}
	return d, nil
}

func (c Config) StatementTimeout() time.Duration {
	return time.Duration(c.Database.StatementTimeoutMS) * time.Millisecond
}

func (c Config) LockExpiry() time.Duration {
	return time.Duration(c.Redis.LockExpiryMS) * time.Millisecond
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.HTTP.RateLimitWindowMS) * time.Millisecond
}
