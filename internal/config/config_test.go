package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q, want :8080", cfg.Addr)
	}
	if len(cfg.LogSinks) != 1 || cfg.LogSinks[0] != "console" {
		t.Fatalf("LogSinks = %v, want [console]", cfg.LogSinks)
	}
	if cfg.CountdownDelay != 3*time.Second {
		t.Fatalf("CountdownDelay = %v, want 3s", cfg.CountdownDelay)
	}
	if cfg.InputRateLimit != 30 {
		t.Fatalf("InputRateLimit = %d, want 30", cfg.InputRateLimit)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SNAKE_ADDR", ":9090")
	t.Setenv("SNAKE_LOG_SINKS", "console, json")
	t.Setenv("SNAKE_COUNTDOWN_SECONDS", "7")
	t.Setenv("SNAKE_INPUT_RATE_LIMIT", "12")

	cfg := Load()
	if cfg.Addr != ":9090" {
		t.Fatalf("Addr = %q, want :9090", cfg.Addr)
	}
	if len(cfg.LogSinks) != 2 || cfg.LogSinks[1] != "json" {
		t.Fatalf("LogSinks = %v, want [console json]", cfg.LogSinks)
	}
	if cfg.CountdownDelay != 7*time.Second {
		t.Fatalf("CountdownDelay = %v, want 7s", cfg.CountdownDelay)
	}
	if cfg.InputRateLimit != 12 {
		t.Fatalf("InputRateLimit = %d, want 12", cfg.InputRateLimit)
	}
}

func TestLoadRejectsGarbageNumbers(t *testing.T) {
	t.Setenv("SNAKE_COUNTDOWN_SECONDS", "banana")
	t.Setenv("SNAKE_INPUT_RATE_LIMIT", "-4")

	cfg := Load()
	if cfg.CountdownDelay != 3*time.Second {
		t.Fatalf("CountdownDelay = %v, want default on parse failure", cfg.CountdownDelay)
	}
	if cfg.InputRateLimit != 30 {
		t.Fatalf("InputRateLimit = %d, want default on negative value", cfg.InputRateLimit)
	}
}
