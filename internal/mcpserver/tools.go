package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/hotplate-dev/hotplate/internal/config"
	"github.com/hotplate-dev/hotplate/internal/correlate"
	"github.com/hotplate-dev/hotplate/internal/livereload"
	"github.com/hotplate-dev/hotplate/internal/telemetry"
)

// registerTools wires every tool in spec.md §4.9's set onto s, closing
// over the shared State. Each handler body is grounded on the
// corresponding Tool impl in original_source/src/mcp.rs, translated
// from the hand-rolled Tool trait there to mcp-go's schema-first
// mcp.NewTool/AddTool registration.
func registerTools(s *server.MCPServer, st *State, base config.Config, certDir string, log zerolog.Logger) {
	s.AddTool(mcp.NewTool("hotplate_status",
		mcp.WithDescription("Get current Hotplate dev-server status."),
	), statusHandler(st))

	s.AddTool(mcp.NewTool("hotplate_start",
		mcp.WithDescription("Start the Hotplate dev server in the background."),
		mcp.WithString("root", mcp.Description("Directory to serve, resolved against the current working directory.")),
		mcp.WithNumber("port", mcp.Description("Port to bind; defaults to the configured port.")),
		mcp.WithBoolean("https", mcp.Description("Serve over HTTPS, generating a self-signed certificate if needed.")),
	), startHandler(st, base, certDir))

	s.AddTool(mcp.NewTool("hotplate_stop",
		mcp.WithDescription("Stop the running Hotplate dev server."),
	), stopHandler(st))

	s.AddTool(mcp.NewTool("hotplate_reload",
		mcp.WithDescription("Force every connected browser to reload; a .css path triggers a CSS-only hot swap."),
		mcp.WithString("path", mcp.Description("Optional file path that triggered this reload.")),
	), reloadHandler(st))

	s.AddTool(mcp.NewTool("hotplate_inject",
		mcp.WithDescription("Inject JavaScript or CSS into every connected browser page."),
		mcp.WithString("code", mcp.Required(), mcp.Description("The code to inject.")),
		mcp.WithString("type", mcp.Required(), mcp.Description("\"js\" or \"css\".")),
	), injectHandler(st))

	s.AddTool(mcp.NewTool("hotplate_screenshot",
		mcp.WithDescription("Capture a screenshot of the active browser viewport."),
		mcp.WithNumber("width", mcp.Description("Viewport width in pixels, default 1280.")),
		mcp.WithNumber("height", mcp.Description("Viewport height in pixels, default 720.")),
	), screenshotHandler(st))

	s.AddTool(mcp.NewTool("hotplate_dom",
		mcp.WithDescription("Query the live DOM of the active browser page with a CSS selector."),
		mcp.WithString("selector", mcp.Required(), mcp.Description("CSS selector to evaluate.")),
	), domHandler(st))

	s.AddTool(mcp.NewTool("hotplate_console",
		mcp.WithDescription("Read buffered browser console log entries."),
		mcp.WithString("level", mcp.Description("Filter to a single console level.")),
		mcp.WithBoolean("clear", mcp.Description("Clear the buffer after reading.")),
	), consoleHandler(st))

	s.AddTool(mcp.NewTool("hotplate_network",
		mcp.WithDescription("Read buffered browser network activity."),
		mcp.WithString("method", mcp.Description("Filter to a single HTTP method.")),
		mcp.WithNumber("status", mcp.Description("Filter to a single HTTP status code.")),
		mcp.WithBoolean("clear", mcp.Description("Clear the buffer after reading.")),
	), networkHandler(st))

	s.AddTool(mcp.NewTool("hotplate_server_logs",
		mcp.WithDescription("Read the on-disk server event log."),
		mcp.WithString("kind", mcp.Description("Filter to a single event kind.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of records to return; the most recent are kept, oldest first.")),
		mcp.WithString("session", mcp.Description("\"current\" (default), \"latest\", \"all\", \"list sessions\", or a specific session id.")),
	), serverLogsHandler(st, log))
}

func textResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

func errResult(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...))
}

// ── hotplate_status ──

func statusHandler(st *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := st.Snapshot()
		blob, err := json.Marshal(map[string]any{
			"running": snap.Running,
			"host":    snap.Config.Host,
			"port":    snap.Config.Port,
			"root":    snap.Config.Root,
			"https":   snap.Config.HasTLS(),
		})
		if err != nil {
			return errResult("marshal status: %s", err), nil
		}
		return textResult(string(blob)), nil
	}
}

// ── hotplate_start ──

func startHandler(st *State, base config.Config, certDir string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		opts := StartOptions{
			Root:  req.GetString("root", ""),
			Port:  int(req.GetFloat("port", 0)),
			HTTPS: req.GetBool("https", false),
		}
		cfg, err := st.Start(base, opts, certDir)
		if err != nil {
			return errResult("%s", err), nil
		}
		scheme := "http"
		if cfg.HasTLS() {
			scheme = "https"
		}
		return textResult(fmt.Sprintf("hotplate started at %s://%s:%d serving %s", scheme, cfg.Host, cfg.Port, cfg.Root)), nil
	}
}

// ── hotplate_stop ──

func stopHandler(st *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := st.Stop(ctx); err != nil {
			return errResult("%s", err), nil
		}
		return textResult("hotplate stopped"), nil
	}
}

// ── hotplate_reload ──

func reloadHandler(st *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")

		var notified int
		err := st.WithReloader(func(rl *livereload.Reloader, _ *correlate.Router, _ *telemetry.Rings) error {
			frame := "reload"
			if path != "" && strings.HasSuffix(strings.ToLower(path), ".css") {
				frame = "css:" + path
			}
			notified = rl.Bus.Publish(frame)
			return nil
		})
		if err != nil {
			return errResult("%s", err), nil
		}
		return textResult(fmt.Sprintf("notified %d browser session(s)", notified)), nil
	}
}

// ── hotplate_inject ──

func injectHandler(st *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := req.RequireString("code")
		if err != nil {
			return errResult("%s", err), nil
		}
		kind, err := req.RequireString("type")
		if err != nil {
			return errResult("%s", err), nil
		}
		if kind != "js" && kind != "css" {
			return errResult("type must be \"js\" or \"css\""), nil
		}

		var notified int
		werr := st.WithReloader(func(rl *livereload.Reloader, _ *correlate.Router, _ *telemetry.Rings) error {
			notified = rl.Bus.Publish(fmt.Sprintf("inject:%s:%s", kind, code))
			return nil
		})
		if werr != nil {
			return errResult("%s", werr), nil
		}
		return textResult(fmt.Sprintf("injected into %d browser session(s)", notified)), nil
	}
}

// ── hotplate_screenshot ──

func screenshotHandler(st *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		width := int(req.GetFloat("width", 1280))
		height := int(req.GetFloat("height", 720))

		var (
			router *correlate.Router
			bus    *livereload.Bus
		)
		err := st.WithReloader(func(rl *livereload.Reloader, r *correlate.Router, _ *telemetry.Rings) error {
			router, bus = r, rl.Bus
			return nil
		})
		if err != nil {
			return errResult("%s", err), nil
		}

		id := correlate.NewID("ss")
		cmd := fmt.Sprintf("screenshot:%s:%dx%d", id, width, height)
		payload, err := router.Request(ctx, bus, "screenshot", id, cmd)
		if err != nil {
			return errResult("%s", err), nil
		}
		if payload == "" {
			return errResult("screenshot capture failed in the browser"), nil
		}
		return mcp.NewToolResultImage("screenshot", payload, "image/png"), nil
	}
}

// ── hotplate_dom ──

func domHandler(st *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		selector, err := req.RequireString("selector")
		if err != nil {
			return errResult("%s", err), nil
		}

		var (
			router *correlate.Router
			bus    *livereload.Bus
		)
		werr := st.WithReloader(func(rl *livereload.Reloader, r *correlate.Router, _ *telemetry.Rings) error {
			router, bus = r, rl.Bus
			return nil
		})
		if werr != nil {
			return errResult("%s", werr), nil
		}

		id := correlate.NewID("dom")
		cmd := fmt.Sprintf("dom_query:%s:%s", id, selector)
		payload, err := router.Request(ctx, bus, "dom", id, cmd)
		if err != nil {
			return errResult("%s", err), nil
		}
		return textResult(payload), nil
	}
}

// ── hotplate_console ──

func consoleHandler(st *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		level := req.GetString("level", "")
		clear := req.GetBool("clear", false)

		var entries []telemetry.ConsoleEntry
		err := st.WithReloader(func(_ *livereload.Reloader, _ *correlate.Router, rings *telemetry.Rings) error {
			entries = rings.Console.Snapshot()
			if clear {
				rings.Console.Clear()
			}
			return nil
		})
		if err != nil {
			return errResult("%s", err), nil
		}

		if level != "" {
			filtered := entries[:0]
			for _, e := range entries {
				if e.Level == level {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}

		blob, _ := json.Marshal(entries)
		return textResult(string(blob)), nil
	}
}

// ── hotplate_network ──

func networkHandler(st *State) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		method := req.GetString("method", "")
		status := int(req.GetFloat("status", 0))
		clear := req.GetBool("clear", false)

		var entries []telemetry.NetworkEntry
		err := st.WithReloader(func(_ *livereload.Reloader, _ *correlate.Router, rings *telemetry.Rings) error {
			entries = rings.Network.Snapshot()
			if clear {
				rings.Network.Clear()
			}
			return nil
		})
		if err != nil {
			return errResult("%s", err), nil
		}

		filtered := entries[:0]
		for _, e := range entries {
			if method != "" && !strings.EqualFold(e.Method, method) {
				continue
			}
			if status != 0 && e.Status != status {
				continue
			}
			filtered = append(filtered, e)
		}

		blob, _ := json.Marshal(filtered)
		return textResult(string(blob)), nil
	}
}

// ── hotplate_server_logs ──

func serverLogsHandler(st *State, log zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind := req.GetString("kind", "")
		limit := int(req.GetFloat("limit", 0))
		session := req.GetString("session", "current")

		dir := st.EventLogDir()
		if dir == "" {
			return errResult("hotplate has never been started in this process; no event log directory is known"), nil
		}

		if session == "list sessions" {
			sessions, err := telemetry.ListSessions(dir)
			if err != nil {
				return errResult("%s", err), nil
			}
			blob, _ := json.Marshal(sessions)
			return textResult(string(blob)), nil
		}

		var (
			records []telemetry.Record
			err     error
		)
		switch session {
		case "current", "latest":
			sessions, lerr := telemetry.ListSessions(dir)
			if lerr != nil || len(sessions) == 0 {
				return errResult("no session logs found"), nil
			}
			records, err = telemetry.ReadSession(dir, sessions[len(sessions)-1])
		case "all":
			records, err = telemetry.ReadAllSessions(dir)
		default:
			records, err = telemetry.ReadSession(dir, session)
		}
		if err != nil {
			return errResult("%s", err), nil
		}

		if kind != "" {
			filtered := records[:0]
			for _, r := range records {
				if r.Kind == kind {
					filtered = append(filtered, r)
				}
			}
			records = filtered
		}

		if limit > 0 && len(records) > limit {
			records = records[len(records)-limit:]
		}

		blob, _ := json.Marshal(records)
		return textResult(string(blob)), nil
	}
}
