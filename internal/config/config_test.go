package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"FIELDREPORT_HTTP_ADDRESS",
		"FIELDREPORT_HTTP_READ_TIMEOUT",
		"FIELDREPORT_SHUTDOWN_TIMEOUT",
		"FIELDREPORT_LOG_LEVEL",
		"FIELDREPORT_TRACE_LOG",
	} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.HTTPAddress != ":8080" {
		t.Fatalf("address = %q", cfg.HTTPAddress)
	}
	if cfg.ReadTimeout != 5*time.Second || cfg.ShutdownTimeout != 15*time.Second {
		t.Fatalf("timeouts = %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("level = %v", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FIELDREPORT_HTTP_ADDRESS", ":9090")
	t.Setenv("FIELDREPORT_HTTP_READ_TIMEOUT", "2s")
	t.Setenv("FIELDREPORT_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.HTTPAddress != ":9090" || cfg.ReadTimeout != 2*time.Second || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	t.Setenv("FIELDREPORT_HTTP_READ_TIMEOUT", "soon")
	if got := Load().ReadTimeout; got != 5*time.Second {
		t.Fatalf("read timeout = %v", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
