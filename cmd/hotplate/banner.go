package main

import (
	"os"

	"github.com/hotplate-dev/hotplate/internal/banner"
	"github.com/hotplate-dev/hotplate/internal/config"
)

// printBanner writes the startup summary to stdout for a foreground
// `hotplate` run. The `--mcp` surface writes the same banner to
// stderr instead (internal/mcpserver/state.go), since stdout there is
// reserved for the JSON-RPC transport (spec.md §4.8).
func printBanner(cfg config.Config) {
	banner.Print(os.Stdout, cfg)
}
