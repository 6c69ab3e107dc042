package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/hotplate-dev/hotplate/internal/config"
)

// serverName/serverVersion identify this process to the MCP client
// during initialize (spec.md §4.8).
const (
	serverName    = "hotplate"
	serverVersion = "0.1.0"
)

// Run builds the ten C9 tools (spec.md §4.9), registers them on an
// mcp-go server, and blocks serving line-delimited JSON-RPC 2.0 over
// stdio (spec.md §4.8, C8). Logs go to stderr via log so stdout stays
// reserved for the transport.
//
// mark3labs/mcp-go is not present as full source anywhere in the
// example pack — only in other repos' go.mod manifests — so it is
// named rather than grounded; it is the common choice across every
// MCP-shaped manifest in the pack (see SPEC_FULL.md §4), which is why
// it was picked over hand-rolling the JSON-RPC dispatcher the way
// original_source/src/mcp.rs does by hand.
func Run(base config.Config, certDir string, log zerolog.Logger) error {
	mcpServer := server.NewMCPServer(serverName, serverVersion)

	st := NewState(log)
	registerTools(mcpServer, st, base, certDir, log)

	return server.ServeStdio(mcpServer)
}
