package clientagent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjectedScriptSubstitutesEndpoint(t *testing.T) {
	out := InjectedScript("/__hotplate_ws")
	assert.True(t, strings.HasPrefix(out, "\n<script>\n"))
	assert.True(t, strings.HasSuffix(out, "\n</script>\n"))
	assert.Contains(t, out, "/__hotplate_ws")
	assert.NotContains(t, out, endpointPlaceholder)
}

func TestInjectedScriptOnlyReplacesFirstOccurrence(t *testing.T) {
	out := InjectedScript("/ws")
	assert.Equal(t, 1, strings.Count(out, "/ws"))
}
