package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Event       EventConfig
	EventStore  EventStoreConfig
	Coordinator CoordinatorConfig
	Telemetry   TelemetryConfig
	Ledger      LedgerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. Redis backs the idempotency
// store for projection handlers; when disabled an in-memory store is used.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// EventConfig holds outbox processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	IdempotencyTTL   time.Duration
}

// EventStoreConfig holds event store tuning
type EventStoreConfig struct {
	// SnapshotEvery takes an aggregate snapshot each time a stream crosses
	// a multiple of this many events. Zero disables snapshots.
	SnapshotEvery int64
	// RebuildBatchSize pages the global log during projection rebuilds.
	RebuildBatchSize int
}

// CoordinatorConfig bounds the invoice-side retry of payment completion
type CoordinatorConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// LedgerConfig holds reference data for invoice processing. Tax rates are
// fractional decimals keyed by line item tax category.
type LedgerConfig struct {
	DocumentPrefix string
	TaxRates       map[string]string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	TraceEnabled      bool          // Export spans to an OTLP collector
	CollectorEndpoint string        // OTLP gRPC endpoint (host:port)
	SamplingRatio     float64       // 0.0 to 1.0
	Insecure          bool          // Disable TLS on the collector connection
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with FINLEDGER_ prefix (e.g., FINLEDGER_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// no config file is fine, defaults and env vars apply
	}

	v.SetEnvPrefix("FINLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
			IdempotencyTTL:   v.GetDuration("event.idempotency_ttl"),
		},
		EventStore: EventStoreConfig{
			SnapshotEvery:    v.GetInt64("eventstore.snapshot_every"),
			RebuildBatchSize: v.GetInt("eventstore.rebuild_batch_size"),
		},
		Coordinator: CoordinatorConfig{
			MaxAttempts:  v.GetInt("coordinator.max_attempts"),
			RetryBackoff: v.GetDuration("coordinator.retry_backoff"),
		},
		Ledger: LedgerConfig{
			DocumentPrefix: v.GetString("ledger.document_prefix"),
			TaxRates:       v.GetStringMapString("ledger.tax_rates"),
		},
		Telemetry: TelemetryConfig{
			TraceEnabled:      v.GetBool("telemetry.trace_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// orZero replaces a zero value with its default. Zero and unset are treated
// the same on purpose: an explicit zero in the environment means "use the
// default", never "no connections" or "never snapshot".
func orZero[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

// applyDefaults fills every zero-valued field with its default.
func applyDefaults(cfg *Config) {
	orZero(&cfg.App.Name, "finledger")
	orZero(&cfg.App.Env, "development")

	orZero(&cfg.Database.Host, "localhost")
	orZero(&cfg.Database.Port, 5432)
	orZero(&cfg.Database.User, "postgres")
	orZero(&cfg.Database.DBName, "finledger")
	orZero(&cfg.Database.SSLMode, "disable")
	orZero(&cfg.Database.MaxOpenConns, 25)
	orZero(&cfg.Database.MaxIdleConns, 5)
	orZero(&cfg.Database.ConnMaxLifetime, 60)
	orZero(&cfg.Database.ConnMaxIdleTime, 30)

	orZero(&cfg.Redis.Host, "localhost")
	orZero(&cfg.Redis.Port, 6379)

	orZero(&cfg.Log.Level, "info")
	orZero(&cfg.Log.Format, "console")
	orZero(&cfg.Log.Output, "stdout")

	orZero(&cfg.Event.BatchSize, 100)
	orZero(&cfg.Event.PollInterval, 5*time.Second)
	orZero(&cfg.Event.MaxRetries, 5)
	orZero(&cfg.Event.CleanupRetention, 168*time.Hour)
	orZero(&cfg.Event.IdempotencyTTL, 24*time.Hour)

	orZero(&cfg.EventStore.SnapshotEvery, 50)
	orZero(&cfg.EventStore.RebuildBatchSize, 500)

	orZero(&cfg.Coordinator.MaxAttempts, 3)
	orZero(&cfg.Coordinator.RetryBackoff, 50*time.Millisecond)

	orZero(&cfg.Ledger.DocumentPrefix, "INV")
	if len(cfg.Ledger.TaxRates) == 0 {
		cfg.Ledger.TaxRates = map[string]string{
			"standard": "0.15",
			"reduced":  "0.05",
			"zero":     "0",
		}
	}

	orZero(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	orZero(&cfg.Telemetry.SamplingRatio, 1.0)
	orZero(&cfg.Telemetry.DBSlowQueryThresh, 200*time.Millisecond)
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.EventStore.SnapshotEvery < 0 {
		return fmt.Errorf("eventstore.snapshot_every cannot be negative")
	}
	if c.Coordinator.MaxAttempts < 1 {
		return fmt.Errorf("coordinator.max_attempts must be at least 1")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
