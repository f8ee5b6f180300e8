package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"FINLEDGER_APP_NAME":                  os.Getenv("FINLEDGER_APP_NAME"),
		"FINLEDGER_APP_ENV":                   os.Getenv("FINLEDGER_APP_ENV"),
		"FINLEDGER_DATABASE_HOST":             os.Getenv("FINLEDGER_DATABASE_HOST"),
		"FINLEDGER_DATABASE_PORT":             os.Getenv("FINLEDGER_DATABASE_PORT"),
		"FINLEDGER_DATABASE_USER":             os.Getenv("FINLEDGER_DATABASE_USER"),
		"FINLEDGER_DATABASE_PASSWORD":         os.Getenv("FINLEDGER_DATABASE_PASSWORD"),
		"FINLEDGER_DATABASE_DBNAME":           os.Getenv("FINLEDGER_DATABASE_DBNAME"),
		"FINLEDGER_DATABASE_SSLMODE":          os.Getenv("FINLEDGER_DATABASE_SSLMODE"),
		"FINLEDGER_DATABASE_MAX_OPEN_CONNS":   os.Getenv("FINLEDGER_DATABASE_MAX_OPEN_CONNS"),
		"FINLEDGER_DATABASE_MAX_IDLE_CONNS":   os.Getenv("FINLEDGER_DATABASE_MAX_IDLE_CONNS"),
		"FINLEDGER_EVENTSTORE_SNAPSHOT_EVERY": os.Getenv("FINLEDGER_EVENTSTORE_SNAPSHOT_EVERY"),
		"FINLEDGER_COORDINATOR_MAX_ATTEMPTS":  os.Getenv("FINLEDGER_COORDINATOR_MAX_ATTEMPTS"),
		"FINLEDGER_EVENT_POLL_INTERVAL":       os.Getenv("FINLEDGER_EVENT_POLL_INTERVAL"),
		"FINLEDGER_TELEMETRY_TRACE_ENABLED":   os.Getenv("FINLEDGER_TELEMETRY_TRACE_ENABLED"),
		"FINLEDGER_TELEMETRY_SAMPLING_RATIO":  os.Getenv("FINLEDGER_TELEMETRY_SAMPLING_RATIO"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "finledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "finledger", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, int64(50), cfg.EventStore.SnapshotEvery)
		assert.Equal(t, 500, cfg.EventStore.RebuildBatchSize)
		assert.Equal(t, 3, cfg.Coordinator.MaxAttempts)
		assert.Equal(t, 50*time.Millisecond, cfg.Coordinator.RetryBackoff)
		assert.Equal(t, 100, cfg.Event.BatchSize)
		assert.Equal(t, 5*time.Second, cfg.Event.PollInterval)
		assert.Equal(t, 5, cfg.Event.MaxRetries)
		assert.Equal(t, 24*time.Hour, cfg.Event.IdempotencyTTL)
		assert.False(t, cfg.Telemetry.TraceEnabled)
		assert.Equal(t, "localhost:4317", cfg.Telemetry.CollectorEndpoint)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.Equal(t, 200*time.Millisecond, cfg.Telemetry.DBSlowQueryThresh)
		assert.Equal(t, "INV", cfg.Ledger.DocumentPrefix)
		assert.Equal(t, "0.15", cfg.Ledger.TaxRates["standard"])
		assert.Equal(t, "0.05", cfg.Ledger.TaxRates["reduced"])
		assert.Equal(t, "0", cfg.Ledger.TaxRates["zero"])
	})

	t.Run("loads values from environment variables with FINLEDGER prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("FINLEDGER_APP_NAME", "test-app")
		os.Setenv("FINLEDGER_APP_ENV", "testing")
		os.Setenv("FINLEDGER_DATABASE_HOST", "testdb.local")
		os.Setenv("FINLEDGER_DATABASE_PORT", "5433")
		os.Setenv("FINLEDGER_DATABASE_USER", "testuser")
		os.Setenv("FINLEDGER_DATABASE_PASSWORD", "testpass")
		os.Setenv("FINLEDGER_DATABASE_DBNAME", "testdb")
		os.Setenv("FINLEDGER_DATABASE_SSLMODE", "require")
		os.Setenv("FINLEDGER_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("FINLEDGER_DATABASE_MAX_IDLE_CONNS", "10")
		os.Setenv("FINLEDGER_EVENTSTORE_SNAPSHOT_EVERY", "100")
		os.Setenv("FINLEDGER_COORDINATOR_MAX_ATTEMPTS", "5")
		os.Setenv("FINLEDGER_EVENT_POLL_INTERVAL", "2s")
		os.Setenv("FINLEDGER_TELEMETRY_TRACE_ENABLED", "true")
		os.Setenv("FINLEDGER_TELEMETRY_SAMPLING_RATIO", "0.25")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, int64(100), cfg.EventStore.SnapshotEvery)
		assert.Equal(t, 5, cfg.Coordinator.MaxAttempts)
		assert.Equal(t, 2*time.Second, cfg.Event.PollInterval)
		assert.True(t, cfg.Telemetry.TraceEnabled)
		assert.Equal(t, 0.25, cfg.Telemetry.SamplingRatio)
	})

	t.Run("validates sampling ratio range", func(t *testing.T) {
		clearEnv()
		os.Setenv("FINLEDGER_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("FINLEDGER_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("FINLEDGER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("FINLEDGER_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("FINLEDGER_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("validates snapshot interval cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("FINLEDGER_EVENTSTORE_SNAPSHOT_EVERY", "-5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "snapshot_every cannot be negative")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"FINLEDGER_APP_ENV":                   os.Getenv("FINLEDGER_APP_ENV"),
		"FINLEDGER_DATABASE_PASSWORD":         os.Getenv("FINLEDGER_DATABASE_PASSWORD"),
		"FINLEDGER_DATABASE_SSLMODE":          os.Getenv("FINLEDGER_DATABASE_SSLMODE"),
		"FINLEDGER_TELEMETRY_DB_LOG_FULL_SQL": os.Getenv("FINLEDGER_TELEMETRY_DB_LOG_FULL_SQL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("FINLEDGER_APP_ENV", "production")
		os.Setenv("FINLEDGER_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("FINLEDGER_APP_ENV", "production")
		os.Setenv("FINLEDGER_DATABASE_PASSWORD", "secure-password")
		os.Setenv("FINLEDGER_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("FINLEDGER_APP_ENV", "production")
		os.Setenv("FINLEDGER_DATABASE_PASSWORD", "secure-password")
		os.Setenv("FINLEDGER_DATABASE_SSLMODE", "require")
		os.Setenv("FINLEDGER_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql must be false in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		os.Setenv("FINLEDGER_APP_ENV", "production")
		os.Setenv("FINLEDGER_DATABASE_PASSWORD", "secure-password")
		os.Setenv("FINLEDGER_DATABASE_SSLMODE", "require")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.local", Port: 6380}
	assert.Equal(t, "redis.local:6380", cfg.Addr())
}
