// Command hotplate runs a developer-workstation static file server with
// automatic browser live-reload, and optionally exposes a JSON-RPC/MCP
// stdio control surface for an external AI agent (spec.md §1).
//
// Grounded on the pack's common cobra+zerolog CLI shape (seen across
// the MCP-shaped manifests surveyed for the JSON-RPC dependency
// choice); the teacher itself is a library with no cmd/ of its own
// (example/main.go uses bare flag), so the CLI layer is built fresh in
// that shared idiom rather than adapted from teacher code.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hotplate-dev/hotplate/internal/certgen"
	"github.com/hotplate-dev/hotplate/internal/config"
	"github.com/hotplate-dev/hotplate/internal/correlate"
	"github.com/hotplate-dev/hotplate/internal/hplog"
	"github.com/hotplate-dev/hotplate/internal/httpapp"
	"github.com/hotplate-dev/hotplate/internal/livereload"
	"github.com/hotplate-dev/hotplate/internal/mcpserver"
	"github.com/hotplate-dev/hotplate/internal/telemetry"
)

// shutdownGrace bounds how long serveOnce waits for in-flight requests
// to finish after Ctrl-C/SIGTERM before forcing the listener closed.
const shutdownGrace = 5 * time.Second

var (
	flagHost            string
	flagPort            int
	flagCert            string
	flagKey             string
	flagHTTPS           bool
	flagNoLiveReload    bool
	flagFullReload      bool
	flagWatchExtensions []string
	flagIgnoreGlobs     []string
	flagSPAFallback     string
	flagProxyBase       string
	flagProxyTarget     string
	flagMounts          []string
	flagHeaders         []string
	flagNoEventLog      bool
	flagMCP             bool
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		hplog.Logger.Fatal().Err(err).Msg("hotplate exited with error")
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotplate [directory]",
		Short: "A live-reloading static file server for front-end development",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}

	cmd.Flags().StringVar(&flagHost, "host", "0.0.0.0", "address to bind")
	cmd.Flags().IntVarP(&flagPort, "port", "p", 5500, "port to bind")
	cmd.Flags().StringVar(&flagCert, "cert", "", "TLS certificate path (enables HTTPS)")
	cmd.Flags().StringVar(&flagKey, "key", "", "TLS private key path (enables HTTPS)")
	cmd.Flags().BoolVar(&flagHTTPS, "https", false, "serve over HTTPS, generating a self-signed certificate if needed")
	cmd.Flags().BoolVar(&flagNoLiveReload, "no-live-reload", false, "disable the file watcher and live-reload WebSocket")
	cmd.Flags().BoolVar(&flagFullReload, "full-reload", false, "always perform a full page reload instead of CSS hot-swap")
	cmd.Flags().StringSliceVar(&flagWatchExtensions, "watch-ext", nil, "override the watched file extensions (\"*\" disables the whitelist)")
	cmd.Flags().StringSliceVar(&flagIgnoreGlobs, "ignore", nil, "glob patterns to exclude from the watcher")
	cmd.Flags().StringVar(&flagSPAFallback, "spa", "", "file to serve on 404 for single-page app routing")
	cmd.Flags().StringVar(&flagProxyBase, "proxy-base", "", "URL path prefix to reverse-proxy")
	cmd.Flags().StringVar(&flagProxyTarget, "proxy-target", "", "upstream origin for --proxy-base")
	cmd.Flags().StringSliceVar(&flagMounts, "mount", nil, "additional url_path:directory mounts")
	cmd.Flags().StringSliceVar(&flagHeaders, "header", nil, "additional Name:Value response headers")
	cmd.Flags().BoolVar(&flagNoEventLog, "no-event-log", false, "disable the on-disk JSONL event log")
	cmd.Flags().BoolVar(&flagMCP, "mcp", false, "run the JSON-RPC/MCP stdio control surface instead of the HTTP server")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root directory: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("root directory %q: %w", root, err)
	}

	cfg, err := buildConfig(root, workspace)
	if err != nil {
		return err
	}

	certDir := cfg.CertsDir()
	if flagMCP {
		return mcpserver.Run(cfg, certDir, hplog.Logger)
	}
	return serveOnce(cfg, certDir)
}

// buildConfig assembles the immutable Config from defaults, .vscode
// settings, and CLI flag overrides — in that precedence order, flags
// winning last (spec.md §3, Config; SPEC_FULL.md §3.3).
func buildConfig(root, workspace string) (config.Config, error) {
	cfg := config.New(root, workspace)

	cfg, err := config.LoadVSCodeSettings(cfg, workspace)
	if err != nil {
		hplog.Logger.Warn().Err(err).Msg("failed to load .vscode/settings.json")
	}

	applyFlagOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func applyFlagOverrides(cfg *config.Config) {
	// cobra's Changed() needs the command, which callers don't thread
	// through here; flags default to the zero value cobra assigns, so
	// compare against the documented defaults instead.
	if flagHost != "0.0.0.0" {
		cfg.Host = flagHost
	}
	if flagPort != 5500 {
		cfg.Port = flagPort
	}
	if flagCert != "" {
		cfg.CertPath = flagCert
	}
	if flagKey != "" {
		cfg.KeyPath = flagKey
	}
	if flagNoLiveReload {
		cfg.LiveReload = false
	}
	if flagFullReload {
		cfg.FullReload = true
	}
	if len(flagWatchExtensions) > 0 {
		cfg.WatchExtensions = flagWatchExtensions
	}
	if len(flagIgnoreGlobs) > 0 {
		cfg.IgnoreGlobs = flagIgnoreGlobs
	}
	if flagSPAFallback != "" {
		cfg.SPAFallbackFile = flagSPAFallback
	}
	if flagProxyBase != "" {
		cfg.ProxyBase = flagProxyBase
	}
	if flagProxyTarget != "" {
		cfg.ProxyTarget = flagProxyTarget
	}
	if flagNoEventLog {
		cfg.EventLogEnabled = false
	}
	cfg.Mounts = append(cfg.Mounts, parseMounts(flagMounts)...)
	cfg.Headers = append(cfg.Headers, parseHeaders(flagHeaders)...)
}

func parseMounts(raw []string) []config.Mount {
	var out []config.Mount
	for _, m := range raw {
		parts := strings.SplitN(m, ":", 2)
		if len(parts) != 2 {
			hplog.Logger.Warn().Str("mount", m).Msg("ignoring malformed --mount, expected url_path:directory")
			continue
		}
		out = append(out, config.Mount{URLPath: parts[0], Dir: parts[1]})
	}
	return out
}

func parseHeaders(raw []string) []config.Header {
	var out []config.Header
	for _, h := range raw {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 {
			hplog.Logger.Warn().Str("header", h).Msg("ignoring malformed --header, expected Name:Value")
			continue
		}
		out = append(out, config.Header{Name: strings.TrimSpace(parts[0]), Value: strings.TrimSpace(parts[1])})
	}
	return out
}

// serveOnce runs the HTTP(S) server in the foreground until
// interrupted (Ctrl-C / SIGTERM), the single-shot counterpart to
// mcpserver.State.Start for direct CLI use.
func serveOnce(cfg config.Config, certDir string) error {
	if cfg.HasTLS() {
		// explicit --cert/--key already set; nothing to generate
	} else if flagHTTPS {
		certPath, keyPath, err := certgen.GenerateSelfSigned(certDir)
		if err != nil {
			return fmt.Errorf("generate self-signed certificate: %w", err)
		}
		cfg.CertPath, cfg.KeyPath = certPath, keyPath
	}

	events, err := telemetry.Open(cfg.EventLogDir(), telemetry.NewSessionID(time.Now().UTC()), cfg.EventLogEnabled, hplog.Logger)
	if err != nil {
		hplog.Logger.Warn().Err(err).Msg("event log disabled: failed to open")
	}
	defer events.Close()

	rings := telemetry.NewRings()
	router := correlate.NewRouter()
	reloader := livereload.New(cfg, events, rings, router, hplog.Logger)
	if err := reloader.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer reloader.Close()

	handler := reloader.Handle(httpapp.New(cfg))

	ln, boundPort, err := httpapp.Listen(cfg.Host, cfg.Port)
	if err != nil {
		return err
	}
	if boundPort != cfg.Port {
		hplog.Logger.Info().Int("requested", cfg.Port).Int("bound", boundPort).Msg("requested port was in use, switched port")
	}
	cfg.Port = boundPort

	printBanner(cfg)
	events.Append(telemetry.KindServerStart, map[string]any{"host": cfg.Host, "port": cfg.Port, "tls": cfg.HasTLS()})

	srv := &http.Server{Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if cfg.HasTLS() {
			errCh <- srv.ServeTLS(ln, cfg.CertPath, cfg.KeyPath)
		} else {
			errCh <- srv.Serve(ln)
		}
	}()

	select {
	case <-ctx.Done():
		events.Append(telemetry.KindServerStop, nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
