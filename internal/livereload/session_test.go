package livereload

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/hotplate-dev/hotplate/internal/telemetry"
)

func newTestSession(fullReload bool) *Session {
	return &Session{
		ID:         "c1",
		bus:        NewBus(),
		events:     &telemetry.EventLog{},
		ring:       telemetry.NewRings(),
		fullReload: fullReload,
		log:        zerolog.Nop(),
	}
}

func TestDeriveFrameCSSChange(t *testing.T) {
	s := newTestSession(false)
	assert.Equal(t, "css:styles/app.css", s.deriveFrame("styles/app.css"))
}

func TestDeriveFrameFullReloadForcesReload(t *testing.T) {
	s := newTestSession(true)
	assert.Equal(t, "reload", s.deriveFrame("styles/app.css"))
}

func TestDeriveFrameNonCSSIsReload(t *testing.T) {
	s := newTestSession(false)
	assert.Equal(t, "reload", s.deriveFrame("index.html"))
}

func TestDeriveFrameForwardsCommandsVerbatim(t *testing.T) {
	s := newTestSession(false)
	assert.Equal(t, "inject:js:alert(1)", s.deriveFrame("inject:js:alert(1)"))
	assert.Equal(t, "screenshot:ss_1:800x600", s.deriveFrame("screenshot:ss_1:800x600"))
	assert.Equal(t, "dom_query:dom_1:.foo", s.deriveFrame("dom_query:dom_1:.foo"))
	assert.Equal(t, "reload", s.deriveFrame("reload"))
}

func TestNextClientIDIsMonotonicallyPrefixed(t *testing.T) {
	a := nextClientID()
	b := nextClientID()
	assert.True(t, len(a) > 1 && a[0] == 'c')
	assert.NotEqual(t, a, b)
}

func TestItoa(t *testing.T) {
	assert.Equal(t, "0", itoa(0))
	assert.Equal(t, "42", itoa(42))
	assert.Equal(t, "18446744073709551615", itoa(18446744073709551615))
}

func TestExtOf(t *testing.T) {
	assert.Equal(t, "css", extOf("a/b/app.css"))
	assert.Equal(t, "", extOf("Makefile"))
}

func TestDispatchDeliversScreenshotResponse(t *testing.T) {
	s := newTestSession(false)
	var gotCh, gotID, gotPayload string
	var gotErr bool
	s.router = deliverFunc(func(ch, id, payload string, isError bool) {
		gotCh, gotID, gotPayload, gotErr = ch, id, payload, isError
	})

	s.dispatch(browserMessage{Kind: "screenshot_response", URL: "ss_1", Msg: "AAA"})
	assert.Equal(t, "screenshot", gotCh)
	assert.Equal(t, "ss_1", gotID)
	assert.Equal(t, "AAA", gotPayload)
	assert.False(t, gotErr)
}

func TestDispatchPushesConsoleEntry(t *testing.T) {
	s := newTestSession(false)
	s.dispatch(browserMessage{Kind: "console", Level: "warn", Message: "uh oh"})

	entries := s.ring.Console.Snapshot()
	assert.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "uh oh", entries[0].Message)
}

func TestDispatchPushesNetworkEntries(t *testing.T) {
	s := newTestSession(false)
	s.dispatch(browserMessage{Kind: "net_request", URL: "/api", Method: "GET", Status: 200})
	s.dispatch(browserMessage{Kind: "net_error", URL: "/api", Method: "GET", Error: "boom"})

	entries := s.ring.Network.Snapshot()
	assert.Len(t, entries, 2)
	assert.Equal(t, 200, entries[0].Status)
	assert.Equal(t, "boom", entries[1].Error)
}

type deliverFunc func(ch, id, payload string, isError bool)

func (f deliverFunc) Deliver(ch, id, payload string, isError bool) { f(ch, id, payload, isError) }
