package config

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, time.Second, cfg.DebounceWindow)
	assert.Equal(t, 256, cfg.AuditQueueSize)
	assert.Equal(t, "pos", cfg.ChannelPrefix)
	assert.False(t, cfg.OTELEnabled)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CART_DEBOUNCE_WINDOW", "750ms")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("WS_ALLOWED_ORIGINS", "http://till.local, ,http://office.local")
	t.Setenv("AUDIT_QUEUE_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.DebounceWindow)
	assert.Equal(t, 4, cfg.MaxConns)
	assert.True(t, cfg.OTELEnabled)
	assert.Equal(t, []string{"http://till.local", "http://office.local"}, cfg.AllowedOrigins)
	assert.Equal(t, 256, cfg.AuditQueueSize)
	assert.Contains(t, cfg.DSN(), "pool_max_conns=4")
}

func TestValidateRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CART_DEBOUNCE_WINDOW", "-1s")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "product_id", "p-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "p-1", line["product_id"])
}
