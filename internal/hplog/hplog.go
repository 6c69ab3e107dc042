// Package hplog wires every component's logging through a single
// zerolog logger that writes to stderr, so stdout stays free for the
// JSON-RPC transport (see internal/mcpserver).
package hplog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger. It is safe for
// concurrent use from any goroutine.
var Logger = New(os.Stderr)

// New builds a logger writing to w with RFC3339 timestamps.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the given subsystem
// name, e.g. Component("watcher").
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// SetLevel adjusts the global minimum log level.
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}
