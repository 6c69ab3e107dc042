package livereload

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hotplate-dev/hotplate/internal/config"
	"github.com/hotplate-dev/hotplate/internal/correlate"
	"github.com/hotplate-dev/hotplate/internal/telemetry"
)

// Endpoint is the fixed WebSocket upgrade path (spec.md §6: "GET
// /__lr").
const Endpoint = "/__lr"

// Reloader ties together the watcher, bus, injector, and per-browser
// sessions into the single middleware a server mounts (spec.md §2,
// data flow C1 → C2 → C5).
//
// Grounded on the teacher's Reloader/Handle() (reload.go): same
// "construct once, wrap a handler, serve the WS endpoint" shape,
// generalized to the full command grammar instead of a single
// "reload" broadcast.
type Reloader struct {
	Bus      *Bus
	Watcher  *Watcher
	Injector *Injector
	Events   *telemetry.EventLog
	Rings    *telemetry.Rings
	Router   *correlate.Router
	Config   config.Config
	Log      zerolog.Logger

	started bool
}

// New builds a Reloader for cfg. It does not start watching until
// Start is called.
func New(cfg config.Config, events *telemetry.EventLog, rings *telemetry.Rings, router *correlate.Router, log zerolog.Logger) *Reloader {
	bus := NewBus()
	return &Reloader{
		Bus:      bus,
		Watcher:  NewWatcher(cfg, bus, events, log.With().Str("component", "watcher").Logger()),
		Injector: NewInjector(Endpoint),
		Events:   events,
		Rings:    rings,
		Router:   router,
		Config:   cfg,
		Log:      log,
	}
}

// Start begins the background filesystem watcher. No-op if live-reload
// is disabled in Config.
func (rl *Reloader) Start() error {
	if rl.started || !rl.Config.LiveReload {
		return nil
	}
	rl.started = true
	return rl.Watcher.Start()
}

// Close stops the watcher.
func (rl *Reloader) Close() error {
	if !rl.started {
		return nil
	}
	return rl.Watcher.Close()
}

// Handle wraps next with the injector middleware and serves the
// live-reload WebSocket endpoint at Endpoint, the same composition
// shape as the teacher's Reloader.Handle (reload.go).
func (rl *Reloader) Handle(next http.Handler) http.Handler {
	wrapped := rl.withRequestLog(rl.Injector.Wrap(next))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == Endpoint {
			ServeWS(w, r, rl.Bus, rl.Events, rl.Rings, rl.Router, rl.Config.FullReload, rl.Log)
			return
		}
		wrapped.ServeHTTP(w, r)
	})
}

// withRequestLog appends a KindHTTPRequest event per served request
// (spec.md §3, Event Record), wrapping next outermost so the recorded
// status reflects whatever the injector ultimately wrote.
func (rl *Reloader) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		rl.Events.Append(telemetry.KindHTTPRequest, map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// statusRecorder captures the status code a downstream handler wrote,
// without buffering the body the way Injector's bufferingWriter does.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}
