// Package banner prints the short human-readable startup summary a
// hotplate server writes once per run, ported from
// original_source/src/server.rs's print_banner. It writes to an
// explicit io.Writer so callers can route it to stdout for a
// foreground `hotplate` run and to stderr for the `--mcp` surface,
// where stdout is reserved for the JSON-RPC transport (spec.md §4.8).
package banner

import (
	"fmt"
	"io"
	"net"

	"github.com/hotplate-dev/hotplate/internal/config"
)

// Print writes a short startup summary to w: root, local and LAN URLs,
// reload mode, proxy, mounts, and SPA fallback.
func Print(w io.Writer, cfg config.Config) {
	scheme := "http"
	if cfg.HasTLS() {
		scheme = "https"
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  hotplate")
	fmt.Fprintln(w, "  ---------------------------------------")
	fmt.Fprintf(w, "  root:    %s\n", cfg.Root)
	fmt.Fprintf(w, "  local:   %s://localhost:%d\n", scheme, cfg.Port)
	if cfg.Host == "0.0.0.0" {
		if addr, err := LocalIPAddress(); err == nil {
			fmt.Fprintf(w, "  network: %s://%s:%d\n", scheme, addr, cfg.Port)
		}
	}
	if cfg.HasTLS() {
		fmt.Fprintln(w, "  https:   enabled (self-signed)")
	}
	fmt.Fprintf(w, "  reload:  %s\n", ReloadMode(cfg))
	if cfg.ProxyBase != "" && cfg.ProxyTarget != "" {
		fmt.Fprintf(w, "  proxy:   %s -> %s\n", cfg.ProxyBase, cfg.ProxyTarget)
	}
	for _, m := range cfg.Mounts {
		fmt.Fprintf(w, "  mount:   %s -> %s\n", m.URLPath, m.Dir)
	}
	if cfg.SPAFallbackFile != "" {
		fmt.Fprintf(w, "  spa:     %s (fallback)\n", cfg.SPAFallbackFile)
	}
	fmt.Fprintln(w, "  ---------------------------------------")
	fmt.Fprintln(w)
}

// ReloadMode summarizes cfg's live-reload behavior for the banner.
func ReloadMode(cfg config.Config) string {
	switch {
	case !cfg.LiveReload:
		return "off"
	case cfg.FullReload:
		return "on (full page)"
	default:
		return "on (css hot swap)"
	}
}

// LocalIPAddress finds the outbound-facing local address by connecting
// a UDP socket to a public address without sending any traffic, the
// same trick original_source/src/server.rs uses.
func LocalIPAddress() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address type")
	}
	return addr.IP.String(), nil
}
