package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"COMPANION_API_URL", "COMPANION_CLIENT_TIMEOUT", "COMPANION_SLOW_REQUEST",
		"COMPANION_STATE_BACKEND", "COMPANION_STATE_PATH", "COMPANION_ENVIRONMENT",
		"COMPANION_DEV_PASSWORD", "COMPANION_LOG_FILE", "COMPANION_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, time.Duration(0), cfg.ClientTimeout)
	assert.Equal(t, 2*time.Second, cfg.SlowRequest)
	assert.Equal(t, StateFile, cfg.StateBackend)
	assert.Equal(t, "state.yaml", filepath.Base(cfg.StatePath))
	assert.Equal(t, "dev123", cfg.DevPassword)
	assert.False(t, cfg.Development())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COMPANION_API_URL", "https://study.example.org/api/")
	t.Setenv("COMPANION_CLIENT_TIMEOUT", "30s")
	t.Setenv("COMPANION_STATE_BACKEND", "SQLite")
	t.Setenv("COMPANION_STATE_PATH", "")
	t.Setenv("COMPANION_ENVIRONMENT", "Development")
	t.Setenv("COMPANION_LOG_LEVEL", "warning")

	cfg := Load()
	assert.Equal(t, "https://study.example.org/api", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.ClientTimeout)
	assert.Equal(t, StateSQLite, cfg.StateBackend)
	assert.Equal(t, "state.db", filepath.Base(cfg.StatePath))
	assert.True(t, cfg.Development())
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestParseDurationInvalid(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("chat send failed", "op", "chat.send")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "chat send failed")

	var record map[string]any
	line := strings.TrimSpace(file.String())
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	assert.Equal(t, "chat.send", record["op"])
}

func TestSetupLoggerFileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companion.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo, false)
	logger.Info("hello")
	require.NoError(t, cleanup())
}
