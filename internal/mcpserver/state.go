// Package mcpserver implements the JSON-RPC/MCP stdio control surface
// (spec.md §4.8-4.9, C8-C9) that lets an external AI agent start, stop,
// and introspect a hotplate server.
package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hotplate-dev/hotplate/internal/banner"
	"github.com/hotplate-dev/hotplate/internal/certgen"
	"github.com/hotplate-dev/hotplate/internal/config"
	"github.com/hotplate-dev/hotplate/internal/correlate"
	"github.com/hotplate-dev/hotplate/internal/httpapp"
	"github.com/hotplate-dev/hotplate/internal/livereload"
	"github.com/hotplate-dev/hotplate/internal/telemetry"
)

// State is the shared, mutex-protected record every tool reads and
// mutates (spec.md §4.9): running flag, current config, the
// reload-bus/reloader handle, telemetry buffers, the correlation
// router, and the background server's shutdown handle.
//
// Grounded on original_source/src/mcp.rs's HotplateState, adapted from
// Option<T> fields guarded by a blocking Mutex to Go's zero-value-is-
// "not running" convention guarded by sync.Mutex.
type State struct {
	mu sync.Mutex

	running  bool
	config   config.Config
	reloader *livereload.Reloader
	router   *correlate.Router
	rings    *telemetry.Rings
	events   *telemetry.EventLog

	listener net.Listener
	server   *http.Server
	serveErr chan error

	log zerolog.Logger
}

// NewState returns a stopped State. Log is used for both MCP
// diagnostics and anything the started server logs.
func NewState(log zerolog.Logger) *State {
	return &State{log: log}
}

// StartOptions are the caller-supplied overrides accepted by
// hotplate_start (spec.md §4.9).
type StartOptions struct {
	Root  string
	Port  int
	HTTPS bool
}

// Start builds a fresh Config, Reloader, telemetry store, and HTTP
// server, then serves it on a background goroutine. It rejects a call
// while already running (spec.md §4.9: "rejects if already running").
func (s *State) Start(base config.Config, opts StartOptions, certDir string) (config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return config.Config{}, fmt.Errorf("hotplate is already running")
	}

	cfg := base
	if opts.Root != "" {
		cfg.Root = opts.Root
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}

	if opts.HTTPS {
		certPath, keyPath, err := certgen.GenerateSelfSigned(certDir)
		if err != nil {
			return config.Config{}, fmt.Errorf("generate self-signed certificate: %w", err)
		}
		cfg.CertPath, cfg.KeyPath = certPath, keyPath
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	s.events = mustOpenEventLog(cfg, s.log)
	s.rings = telemetry.NewRings()
	s.router = correlate.NewRouter()
	s.reloader = livereload.New(cfg, s.events, s.rings, s.router, s.log)
	if err := s.reloader.Start(); err != nil {
		return config.Config{}, fmt.Errorf("start watcher: %w", err)
	}

	handler := s.reloader.Handle(httpapp.New(cfg))

	ln, boundPort, err := httpapp.Listen(cfg.Host, cfg.Port)
	if err != nil {
		s.reloader.Close()
		return config.Config{}, err
	}
	cfg.Port = boundPort

	s.listener = ln
	s.server = &http.Server{Handler: handler}
	s.serveErr = make(chan error, 1)
	s.config = cfg
	s.running = true

	s.events.Append(telemetry.KindServerStart, map[string]any{
		"host": cfg.Host,
		"port": cfg.Port,
		"tls":  cfg.HasTLS(),
	})

	// The banner goes to stderr here, never stdout: stdout under --mcp
	// is the JSON-RPC transport (spec.md §4.8), so anything hotplate_start
	// prints for a human must not share that stream.
	banner.Print(os.Stderr, cfg)

	go func() {
		var err error
		if cfg.HasTLS() {
			err = s.server.ServeTLS(ln, cfg.CertPath, cfg.KeyPath)
		} else {
			err = s.server.Serve(ln)
		}
		if err != nil && err != http.ErrServerClosed {
			s.serveErr <- err
		}
	}()

	return cfg, nil
}

// Stop shuts the running server down, releasing the watcher, bus, and
// telemetry buffers (spec.md §4.9: "aborts the task; clears all
// channels and buffers; marks stopped").
func (s *State) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("hotplate is not running")
	}

	s.events.Append(telemetry.KindServerStop, nil)
	_ = s.server.Shutdown(ctx)
	_ = s.reloader.Close()
	s.events.Close()

	s.running = false
	s.server = nil
	s.listener = nil
	s.reloader = nil
	s.router = nil
	s.rings = nil
	s.events = nil
	return nil
}

// Snapshot is an immutable read of State for hotplate_status.
type Snapshot struct {
	Running bool
	Config  config.Config
}

// Snapshot returns the current running flag and config.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Running: s.running, Config: s.config}
}

// WithReloader runs fn with the current reloader/router/rings/events if
// the server is running, returning an error otherwise. Tools that touch
// live state (reload, inject, screenshot, dom, console, network) all
// funnel through this so the "not running" check lives in one place.
func (s *State) WithReloader(fn func(*livereload.Reloader, *correlate.Router, *telemetry.Rings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("hotplate is not running")
	}
	return fn(s.reloader, s.router, s.rings)
}

// EventLogDir exposes where server-logs should be read from even when
// the server is stopped (events persist across stop/start within the
// same workspace).
func (s *State) EventLogDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.Workspace != "" {
		return s.config.Workspace + "/.hotplate"
	}
	return ""
}

func mustOpenEventLog(cfg config.Config, log zerolog.Logger) *telemetry.EventLog {
	session := telemetry.NewSessionID(time.Now().UTC())
	el, err := telemetry.Open(cfg.EventLogDir(), session, cfg.EventLogEnabled, log)
	if err != nil {
		log.Warn().Err(err).Msg("event log disabled: failed to open")
		el, _ = telemetry.Open(cfg.EventLogDir(), session, false, log)
	}
	return el
}
