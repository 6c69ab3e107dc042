package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// vscodeSettings mirrors the subset of .vscode/settings.json keys
// hotplate understands, all namespaced "hotplate.*" the way VS Code
// extensions namespace their contributed settings.
type vscodeSettings struct {
	Host            *string  `json:"hotplate.host"`
	Port            *int     `json:"hotplate.port"`
	Root            *string  `json:"hotplate.root"`
	LiveReload      *bool    `json:"hotplate.liveReload"`
	FullReload      *bool    `json:"hotplate.fullReload"`
	IgnoreGlobs     []string `json:"hotplate.ignore"`
	WatchExtensions []string `json:"hotplate.watchExtensions"`
	SPAFallbackFile *string  `json:"hotplate.spaFallbackFile"`
	ProxyBase       *string  `json:"hotplate.proxyBase"`
	ProxyTarget     *string  `json:"hotplate.proxyTarget"`
	EventLog        *bool    `json:"hotplate.eventLog"`
}

// LoadVSCodeSettings reads workspace/.vscode/settings.json if present
// and applies its hotplate.* keys on top of base, returning the merged
// Config. A missing file is not an error — base is returned unchanged.
func LoadVSCodeSettings(base Config, workspace string) (Config, error) {
	path := filepath.Join(workspace, ".vscode", "settings.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return base, nil
	}
	if err != nil {
		return base, err
	}

	var s vscodeSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return base, err
	}

	cfg := base
	if s.Host != nil {
		cfg.Host = *s.Host
	}
	if s.Port != nil {
		cfg.Port = *s.Port
	}
	if s.Root != nil {
		cfg.Root = *s.Root
	}
	if s.LiveReload != nil {
		cfg.LiveReload = *s.LiveReload
	}
	if s.FullReload != nil {
		cfg.FullReload = *s.FullReload
	}
	if len(s.IgnoreGlobs) > 0 {
		cfg.IgnoreGlobs = s.IgnoreGlobs
	}
	if len(s.WatchExtensions) > 0 {
		cfg.WatchExtensions = s.WatchExtensions
	}
	if s.SPAFallbackFile != nil {
		cfg.SPAFallbackFile = *s.SPAFallbackFile
	}
	if s.ProxyBase != nil {
		cfg.ProxyBase = *s.ProxyBase
	}
	if s.ProxyTarget != nil {
		cfg.ProxyTarget = *s.ProxyTarget
	}
	if s.EventLog != nil {
		cfg.EventLogEnabled = *s.EventLog
	}
	return cfg, nil
}
