// Package config builds the immutable Config record that every other
// package in hotplate consumes. A Config is assembled once per run from
// CLI flags and an optional VS Code settings.json file, then never
// mutated again (see spec.md §3, Lifecycle).
package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultWatchExtensions is the whitelist applied when the user hasn't
// overridden it. "*" disables the whitelist entirely.
var DefaultWatchExtensions = []string{
	"html", "htm", "css", "scss", "sass", "less",
	"js", "jsx", "ts", "tsx", "mjs", "cjs",
	"json", "svg", "png", "jpg", "jpeg", "gif", "webp", "ico",
	"woff", "woff2", "ttf", "eot",
	"xml", "md", "txt",
}

// IgnoreDirs are path segments that are always skipped by the watcher,
// regardless of user configuration.
var IgnoreDirs = []string{".git", "node_modules", "target", "__pycache__", ".venv"}

// IgnoreExts are file extensions that are always skipped by the watcher.
var IgnoreExts = []string{"pyc", "pyo", "swp", "swo", "tmp"}

// Mount maps a URL prefix to an alternate directory on disk.
type Mount struct {
	URLPath string
	Dir     string
}

// Header is a custom response header applied to every served response.
type Header struct {
	Name  string
	Value string
}

// Config is the immutable record every component reads from. Build one
// with New (defaults only), optionally overlaid by LoadVSCodeSettings
// and CLI flags, and never mutate it after the server starts.
type Config struct {
	Host string
	Port int
	Root string

	CertPath string
	KeyPath  string

	LiveReload bool
	FullReload bool

	Workspace string

	IgnoreGlobs     []string
	WatchExtensions []string // lowercase, no leading dot; ["*"] disables the whitelist
	SPAFallbackFile string   // empty disables SPA fallback
	ProxyBase       string
	ProxyTarget     string
	Headers         []Header
	Mounts          []Mount
	EventLogEnabled bool
}

// New returns a Config with every field at its documented default,
// rooted at root and workspaced at workspace.
func New(root, workspace string) Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            5500,
		Root:            root,
		LiveReload:      true,
		FullReload:      false,
		Workspace:       workspace,
		WatchExtensions: append([]string(nil), DefaultWatchExtensions...),
		EventLogEnabled: true,
	}
}

// HasTLS reports whether both cert and key paths are set.
func (c Config) HasTLS() bool {
	return c.CertPath != "" && c.KeyPath != ""
}

// WatchesAllExtensions reports whether the extension whitelist has been
// disabled via "*" (spec.md §4.1 step 3).
func (c Config) WatchesAllExtensions() bool {
	for _, e := range c.WatchExtensions {
		if e == "*" {
			return true
		}
	}
	return false
}

// AllowsExtension reports whether a lowercased, dot-free extension
// passes the configured whitelist.
func (c Config) AllowsExtension(ext string) bool {
	if c.WatchesAllExtensions() {
		return true
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range c.WatchExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Validate checks invariants that must hold before the server starts.
func (c Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("config: root directory is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if (c.CertPath == "") != (c.KeyPath == "") {
		return fmt.Errorf("config: cert and key must both be set or both be empty")
	}
	if c.ProxyBase != "" && c.ProxyTarget == "" {
		return fmt.Errorf("config: proxy-base set without proxy-target")
	}
	return nil
}

// CertsDir returns the directory where auto-generated self-signed
// certificates live (spec.md §6, Filesystem layout).
func (c Config) CertsDir() string {
	return filepath.Join(c.Workspace, ".hotplate", "certs")
}

// EventLogDir returns the directory holding per-session JSONL event logs.
func (c Config) EventLogDir() string {
	return filepath.Join(c.Workspace, ".hotplate")
}
