package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfigPresets(t *testing.T) {
	dev := DefaultConfig()
	assert.Equal(t, "console", dev.Format)
	assert.Equal(t, "info", dev.Level)

	prod := ProductionConfig()
	assert.Equal(t, "json", prod.Format)
	assert.Equal(t, "stdout", prod.Output)
}

func TestNew(t *testing.T) {
	t.Run("builds for both formats", func(t *testing.T) {
		for _, cfg := range []*Config{DefaultConfig(), ProductionConfig()} {
			log, err := New(cfg)
			require.NoError(t, err)
			assert.NotNil(t, log)
		}
	})

	t.Run("writes to a file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.log")
		log, err := New(&Config{Level: "debug", Format: "json", Output: path})
		require.NoError(t, err)

		log.Info("started")
		_ = Sync(log)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "started")
	})

	t.Run("unopenable file output fails", func(t *testing.T) {
		_, err := New(&Config{Level: "info", Format: "json", Output: "/nonexistent-dir/ledger.log"})
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLevel(tt.level), "level %q", tt.level)
	}
}

func TestOpenOutput(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "STDOUT", ""} {
		sink, err := openOutput(output)
		require.NoError(t, err)
		assert.NotNil(t, sink)
	}
}

func TestEncoderFor(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(encoderFor("json"), zapcore.AddSync(&buf), zapcore.InfoLevel)
	log := zap.New(core)

	log.Debug("hidden")
	log.Info("payment recorded", zap.String("payment_id", "pay-1"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "payment recorded", line["msg"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "pay-1", line["payment_id"])
	assert.NotContains(t, buf.String(), "hidden")

	assert.NotNil(t, encoderFor("console"))
}
