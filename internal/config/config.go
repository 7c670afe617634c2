// Package config loads client configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment names recognised by COMPANION_ENVIRONMENT.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// State backends recognised by COMPANION_STATE_BACKEND.
const (
	StateFile   = "file"
	StateSQLite = "sqlite"
	StateMemory = "memory"
	StateNone   = "none"
)

// Config holds all configuration values.
type Config struct {
	// Backend API
	APIURL        string
	ClientTimeout time.Duration
	SlowRequest   time.Duration

	// Local state
	StateBackend string
	StatePath    string

	// Developer override gate
	Environment string
	DevPassword string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	backend := strings.ToLower(getEnv("COMPANION_STATE_BACKEND", StateFile))
	return Config{
		APIURL:        strings.TrimRight(getEnv("COMPANION_API_URL", "http://localhost:8000"), "/"),
		ClientTimeout: parseDuration(getEnv("COMPANION_CLIENT_TIMEOUT", ""), 0),
		SlowRequest:   parseDuration(getEnv("COMPANION_SLOW_REQUEST", ""), 2*time.Second),

		StateBackend: backend,
		StatePath:    getEnv("COMPANION_STATE_PATH", DefaultStatePath(backend)),

		Environment: strings.ToLower(getEnv("COMPANION_ENVIRONMENT", EnvProduction)),
		DevPassword: getEnv("COMPANION_DEV_PASSWORD", "dev123"),

		LogFile:  getEnv("COMPANION_LOG_FILE", "/tmp/companion.log"),
		LogLevel: parseLogLevel(getEnv("COMPANION_LOG_LEVEL", "INFO")),
	}
}

// Development reports whether the developer gate is open by environment.
func (c Config) Development() bool {
	return c.Environment == EnvDevelopment
}

// DefaultStatePath returns ~/.companion/state.{yaml,db} for the given backend.
func DefaultStatePath(backend string) string {
	name := "state.yaml"
	if backend == StateSQLite {
		name = "state.db"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "companion", name)
	}
	return filepath.Join(home, ".companion", name)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
