package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ledgerEntry is a minimal model for exercising traced database operations.
type ledgerEntry struct {
	ID        uint   `gorm:"primaryKey"`
	Reference string `gorm:"size:100"`
	CreatedAt time.Time
}

func setupTracingTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&ledgerEntry{}))
	return db
}

func setupSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBTracingPlugin_RegisterOtelGorm_Disabled(t *testing.T) {
	db := setupTracingTestDB(t)

	cfg := DefaultDBTracingConfig()
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())

	require.NoError(t, plugin.RegisterOtelGorm(db))

	// Queries still run without any tracing installed.
	require.NoError(t, db.Create(&ledgerEntry{Reference: "INV-2026-0001"}).Error)
}

func TestDBTracingPlugin_RegisterOtelGorm_Enabled(t *testing.T) {
	setupSpanRecorder(t)
	db := setupTracingTestDB(t)

	cfg := DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "sqlite",
	}
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())

	require.NoError(t, plugin.RegisterOtelGorm(db))

	require.NoError(t, db.Create(&ledgerEntry{Reference: "INV-2026-0002"}).Error)

	var entries []ledgerEntry
	require.NoError(t, db.Find(&entries).Error)
	assert.Len(t, entries, 1)
}

func TestDBTracingPlugin_SlowQueryAnnotation(t *testing.T) {
	recorder := setupSpanRecorder(t)
	db := setupTracingTestDB(t)

	cfg := DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 0, // every query counts as slow
		DBSystem:        "sqlite",
	}
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, parent := StartSpan(context.Background(), "test.slow_query")
	require.NoError(t, db.WithContext(ctx).Create(&ledgerEntry{Reference: "INV-2026-0003"}).Error)
	parent.End()

	var flagged bool
	for _, span := range recorder.Ended() {
		for _, attr := range span.Attributes() {
			if string(attr.Key) == "db.slow_query" && attr.Value.AsBool() {
				flagged = true
			}
		}
	}
	assert.True(t, flagged, "expected a span flagged as slow query")
}

func TestDBTracingPlugin_DoubleRegistrationFails(t *testing.T) {
	setupSpanRecorder(t)
	db := setupTracingTestDB(t)

	cfg := DBTracingConfig{Enabled: true, SlowQueryThresh: time.Second, DBSystem: "sqlite"}
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())

	require.NoError(t, plugin.RegisterOtelGorm(db))
	assert.Error(t, plugin.RegisterOtelGorm(db))
}
