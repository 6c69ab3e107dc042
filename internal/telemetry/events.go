// Package telemetry implements the buffered browser telemetry (console
// and network error ring buffers) and the append-only, per-session
// JSONL event log that backs the hotplate_server_logs MCP tool
// (spec.md §5, C6).
package telemetry

import (
	"fmt"
	"time"
)

// Event kinds mirror original_source/src/events.rs's EventData enum,
// flattened to string tags since Go's JSON event log has no
// discriminated-union sugar worth hand-rolling here.
const (
	KindServerStart   = "server_start"
	KindServerStop    = "server_stop"
	KindFileChange    = "file_change"
	KindReloadTrigger = "reload_trigger"
	KindWSConnect     = "ws_connect"
	KindWSDisconnect  = "ws_disconnect"
	KindHTTPRequest   = "http_request"
	KindJSError       = "js_error"
	KindConsoleLog    = "console_log"
	KindNetworkError  = "network_error"
)

// Record is one line of a session's events-<session>.jsonl file.
type Record struct {
	Time    time.Time `json:"ts"`
	Session string    `json:"session"`
	Kind    string    `json:"kind"`
	Data    any       `json:"data,omitempty"`
}

// NewSessionID produces a sortable session identifier of the form
// YYYYMMDD-HHMMSS, the same format original_source/src/events.rs's
// generate_session_id derives from days-since-epoch arithmetic — Go's
// time package makes that arithmetic unnecessary.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("%04d%02d%02d-%02d%02d%02d",
		now.Year(), now.Month(), now.Day(),
		now.Hour(), now.Minute(), now.Second())
}

// ConsoleEntry is a single captured browser console.* call or js_error
// (spec.md §3, Console Entry).
type ConsoleEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	Line      int       `json:"line,omitempty"`
	Col       int       `json:"col,omitempty"`
	Stack     string    `json:"stack,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkEntry is a single captured fetch/XHR completion or failure
// (spec.md §3, Network Entry).
type NetworkEntry struct {
	URL        string    `json:"url"`
	Method     string    `json:"method"`
	Status     int       `json:"status,omitempty"`
	DurationMs float64   `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
