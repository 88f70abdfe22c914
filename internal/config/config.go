// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the server binary needs at startup.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string

	// LogSinks names the enabled log sinks (console, json).
	LogSinks []string
	// LogBufferSize bounds the async log queue.
	LogBufferSize int
	// LogMinSeverity filters events below this level (debug, info, warn, error).
	LogMinSeverity string
	// LogJSONPath is the NDJSON log file, when the json sink is enabled.
	LogJSONPath string

	// CountdownDelay is the lobby-to-match countdown.
	CountdownDelay time.Duration
	// RestartDelay is how long results stay up before the lobby returns.
	RestartDelay time.Duration
	// EmptyRoomTimeout is how long an empty room survives before removal.
	EmptyRoomTimeout time.Duration
	// InputRateLimit caps input messages per player per second.
	InputRateLimit int

	// ShutdownTimeout bounds graceful drain on SIGTERM.
	ShutdownTimeout time.Duration
}

// Load reads the environment. A .env file in the working directory is
// merged in first; missing values fall back to defaults.
func Load() Config {
	// Absent .env files are the normal case outside development.
	godotenv.Load()

	return Config{
		Addr:             envString("SNAKE_ADDR", ":8080"),
		LogSinks:         envList("SNAKE_LOG_SINKS", []string{"console"}),
		LogBufferSize:    envInt("SNAKE_LOG_BUFFER", 1024),
		LogMinSeverity:   envString("SNAKE_LOG_MIN_SEVERITY", "info"),
		LogJSONPath:      envString("SNAKE_LOG_JSON_PATH", "snake-server.log"),
		CountdownDelay:   envSeconds("SNAKE_COUNTDOWN_SECONDS", 3*time.Second),
		RestartDelay:     envSeconds("SNAKE_RESTART_SECONDS", 5*time.Second),
		EmptyRoomTimeout: envSeconds("SNAKE_EMPTY_ROOM_SECONDS", 30*time.Second),
		InputRateLimit:   envInt("SNAKE_INPUT_RATE_LIMIT", 30),
		ShutdownTimeout:  envSeconds("SNAKE_SHUTDOWN_SECONDS", 10*time.Second),
	}
}

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func envList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
