// Package config centralises environment configuration for the fieldreport
// server. Storage backend selection stays with the driver factories in
// internal/core and internal/blob; this package covers the server process
// itself.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config captures runtime configuration for the fieldreport server.
type Config struct {
	HTTPAddress     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	LogLevel        slog.Level
	TraceLogPath    string // when set, JSON trace spans are appended here
}

// Load reads environment variables into Config, applying defaults suited to
// local development.
func Load() Config {
	return Config{
		HTTPAddress:     getEnv("FIELDREPORT_HTTP_ADDRESS", ":8080"),
		ReadTimeout:     getDurationEnv("FIELDREPORT_HTTP_READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDurationEnv("FIELDREPORT_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDurationEnv("FIELDREPORT_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDurationEnv("FIELDREPORT_SHUTDOWN_TIMEOUT", 15*time.Second),
		LogLevel:        parseLevel(getEnv("FIELDREPORT_LOG_LEVEL", "info")),
		TraceLogPath:    getEnv("FIELDREPORT_TRACE_LOG", ""),
	}
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
