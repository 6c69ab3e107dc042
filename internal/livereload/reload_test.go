package livereload

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotplate-dev/hotplate/internal/config"
	"github.com/hotplate-dev/hotplate/internal/correlate"
	"github.com/hotplate-dev/hotplate/internal/telemetry"
)

func TestReloaderStartNoopWhenLiveReloadDisabled(t *testing.T) {
	cfg := config.New(t.TempDir(), t.TempDir())
	cfg.LiveReload = false

	rl := New(cfg, noopEventLog(), telemetry.NewRings(), correlate.NewRouter(), zerolog.Nop())
	require.NoError(t, rl.Start())
	assert.NoError(t, rl.Close())
}

func TestReloaderHandleServesWSEndpoint(t *testing.T) {
	cfg := config.New(t.TempDir(), t.TempDir())
	cfg.LiveReload = false

	rl := New(cfg, noopEventLog(), telemetry.NewRings(), correlate.NewRouter(), zerolog.Nop())
	handler := rl.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))

	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):] + Endpoint
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return rl.Bus.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReloaderHandleInjectsIntoStaticPages(t *testing.T) {
	cfg := config.New(t.TempDir(), t.TempDir())
	cfg.LiveReload = false

	rl := New(cfg, noopEventLog(), telemetry.NewRings(), correlate.NewRouter(), zerolog.Nop())
	handler := rl.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hi</body></html>"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), "<script>")
}

func noopEventLog() *telemetry.EventLog {
	el, _ := telemetry.Open("", "test", false, zerolog.Nop())
	return el
}
