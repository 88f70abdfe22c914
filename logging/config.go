package logging

import (
	"maps"
	"slices"
	"time"
)

// Well-known sink names accepted in Config.EnabledSinks.
const (
	SinkConsole = "console"
	SinkJSON    = "json"
)

// Config tunes the event router and its sinks.
type Config struct {
	// EnabledSinks selects which named sinks receive events.
	EnabledSinks []string
	// BufferSize bounds the router's async queue; events beyond it are
	// dropped, never blocked on.
	BufferSize      int
	MinimumSeverity Severity
	// Fields is stamped onto every published event.
	Fields map[string]any
	JSON   JSONConfig
	// DropWarnInterval throttles the fallback warning emitted when the
	// queue sheds events.
	DropWarnInterval time.Duration
}

// JSONConfig tunes the file-backed JSON sink.
type JSONConfig struct {
	FilePath      string
	FlushInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{SinkConsole},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

// HasSink reports whether the named sink is enabled.
func (c Config) HasSink(name string) bool {
	return slices.Contains(c.EnabledSinks, name)
}

// CloneFields returns an independent copy of the shared fields, or nil when
// none are set.
func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	return maps.Clone(c.Fields)
}
