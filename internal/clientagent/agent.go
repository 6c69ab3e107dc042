// Package clientagent embeds the browser-side live-reload and telemetry
// script injected into every HTML response (spec.md §4.4, C4).
//
// Grounded on the teacher's InjectedScript (reload.go), which builds a
// small inline <script> via fmt.Sprintf; generalized here to a
// standalone file loaded through go:embed, since the full client agent
// (reload, CSS hot-swap, inject, DOM query, screenshot stub, console
// and fetch telemetry) is too large to keep as a readable Go string
// literal the way the teacher's single-purpose reload snippet is.
package clientagent

import (
	_ "embed"
	"strings"
)

//go:embed agent.js
var script string

// endpointPlaceholder is substituted for the live WebSocket endpoint
// path at injection time.
const endpointPlaceholder = "%ENDPOINT%"

// InjectedScript returns the <script> block to splice into an HTML
// response, wired to connect back to wsEndpoint.
func InjectedScript(wsEndpoint string) string {
	body := strings.Replace(script, endpointPlaceholder, wsEndpoint, 1)
	var b strings.Builder
	b.WriteString("\n<script>\n")
	b.WriteString(body)
	b.WriteString("\n</script>\n")
	return b.String()
}
