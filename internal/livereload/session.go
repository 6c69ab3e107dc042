package livereload

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hotplate-dev/hotplate/internal/telemetry"
)

// upgrader mirrors the teacher's permissive dev-server CORS stance:
// any origin may open the live-reload socket, since this server is
// never exposed beyond a developer's own machine (spec.md §1,
// Non-goals).
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientSeq assigns monotonic client ids ("c<N>"), spec.md §4.5.
var clientSeq uint64

// browserMessage is the single JSON object a browser sends over the
// live-reload socket (spec.md §3, Browser Message; §4.4/§4.5 for the
// per-kind field list). Unused fields for a given kind are simply
// absent from the wire payload.
type browserMessage struct {
	Kind string `json:"kind"`

	// connect
	URL string `json:"url,omitempty"`
	UA  string `json:"ua,omitempty"`
	VW  int    `json:"vw,omitempty"`
	VH  int    `json:"vh,omitempty"`

	// js_error / console
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
	Source  string `json:"source,omitempty"`
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
	Stack   string `json:"stack,omitempty"`

	// net_request / net_error
	Method     string  `json:"method,omitempty"`
	Status     int     `json:"status,omitempty"`
	DurationMs float64 `json:"duration_ms,omitempty"`
	Error      string  `json:"error,omitempty"`

	// screenshot_response / dom_response reuse URL above to carry the
	// correlation id, per spec.md §4.4: `{kind, url:id, msg:...}`.
	Msg string `json:"msg,omitempty"`
}

// Correlator receives screenshot/DOM replies so the correlation router
// (internal/correlate) can match them to an in-flight MCP request.
// internal/correlate.Router satisfies this.
type Correlator interface {
	Deliver(ch, id, payload string, isError bool)
}

// Session is one browser tab's WebSocket connection to the reloader
// (spec.md §4.5, C5). It fans bus messages out to the socket,
// translating file-change notifications into `reload`/`css:…` frames
// and forwarding `inject:`/`screenshot:`/`dom_query:` commands
// verbatim, and drains inbound Browser Messages from the socket.
//
// Grounded on the teacher's ServeWS/Handle loop (reload.go), replacing
// its single "reload"-only protocol with the full command grammar and
// structured event logging spec.md §4.5 requires.
type Session struct {
	ID         string
	conn       *websocket.Conn
	bus        *Bus
	events     *telemetry.EventLog
	ring       *telemetry.Rings
	router     Correlator
	fullReload bool
	log        zerolog.Logger
}

// ServeWS upgrades r into a live-reload Session and blocks until the
// connection closes. router may be nil if no MCP control surface is
// active. fullReload mirrors Config.FullReload: when set, every
// file-change notification becomes a full `reload` regardless of
// extension.
func ServeWS(w http.ResponseWriter, r *http.Request, bus *Bus, events *telemetry.EventLog, ring *telemetry.Rings, router Correlator, fullReload bool, log zerolog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := nextClientID()
	s := &Session{
		ID:         id,
		conn:       conn,
		bus:        bus,
		events:     events,
		ring:       ring,
		router:     router,
		fullReload: fullReload,
		log:        log.With().Str("client", id).Logger(),
	}
	s.run(r)
}

func nextClientID() string {
	n := atomic.AddUint64(&clientSeq, 1)
	return "c" + itoa(n)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (s *Session) run(r *http.Request) {
	defer s.conn.Close()

	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	done := make(chan struct{})
	go s.readLoop(done)

	for {
		select {
		case <-done:
			s.events.Append(telemetry.KindWSDisconnect, map[string]any{"client": s.ID})
			s.log.Debug().Msg("client disconnected")
			return

		case msg, ok := <-sub:
			if !ok {
				return
			}
			frame := s.deriveFrame(msg)
			if frame == "" {
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				s.log.Debug().Err(err).Msg("write failed, closing session")
				return
			}
			if frame == "reload" || strings.HasPrefix(frame, "css:") {
				s.events.Append(telemetry.KindReloadTrigger, map[string]any{
					"client": s.ID,
					"frame":  frame,
				})
			}
		}
	}
}

// deriveFrame implements spec.md §4.5's bus-to-wire translation: bare
// relative paths are file-change notifications and become `reload` or
// `css:<path>`; anything already carrying a recognized command prefix
// is forwarded verbatim.
func (s *Session) deriveFrame(msg string) string {
	switch {
	case strings.HasPrefix(msg, "inject:"),
		strings.HasPrefix(msg, "screenshot:"),
		strings.HasPrefix(msg, "dom_query:"),
		msg == "reload",
		strings.HasPrefix(msg, "css:"):
		return msg
	default:
		if !s.fullReload && strings.EqualFold(extOf(msg), "css") {
			return "css:" + msg
		}
		return "reload"
	}
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i == -1 {
		return ""
	}
	return path[i+1:]
}

// readLoop drains inbound frames until the connection errs or closes,
// dispatching each by its message kind. It never writes to conn — all
// writes happen from run's select loop, so the two goroutines never
// race on the connection's write side.
func (s *Session) readLoop(done chan<- struct{}) {
	defer close(done)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg browserMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Any parse failure on an inbound frame is silently
			// skipped (spec.md §7(f)).
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg browserMessage) {
	now := time.Now().UTC()

	switch msg.Kind {
	case "connect":
		s.events.Append(telemetry.KindWSConnect, map[string]any{
			"client": s.ID,
			"url":    msg.URL,
			"ua":     msg.UA,
			"vw":     msg.VW,
			"vh":     msg.VH,
		})

	case "js_error":
		entry := telemetry.ConsoleEntry{
			Level:     "js_error",
			Message:   msg.Message,
			Source:    msg.Source,
			Line:      msg.Line,
			Col:       msg.Col,
			Stack:     msg.Stack,
			Timestamp: now,
		}
		s.ring.Console.Push(entry)
		s.events.Append(telemetry.KindJSError, entry)

	case "console":
		entry := telemetry.ConsoleEntry{
			Level:     msg.Level,
			Message:   msg.Message,
			Timestamp: now,
		}
		s.ring.Console.Push(entry)
		s.events.Append(telemetry.KindConsoleLog, entry)

	case "net_request":
		s.ring.Network.Push(telemetry.NetworkEntry{
			URL:        msg.URL,
			Method:     msg.Method,
			Status:     msg.Status,
			DurationMs: msg.DurationMs,
			Timestamp:  now,
		})

	case "net_error":
		entry := telemetry.NetworkEntry{
			URL:       msg.URL,
			Method:    msg.Method,
			Error:     msg.Error,
			Timestamp: now,
		}
		s.ring.Network.Push(entry)
		s.events.Append(telemetry.KindNetworkError, entry)

	case "screenshot_response", "dom_response":
		if s.router != nil {
			ch := "screenshot"
			if msg.Kind == "dom_response" {
				ch = "dom"
			}
			payload := msg.Msg
			if msg.Error != "" {
				payload = msg.Error
			}
			s.router.Deliver(ch, msg.URL, payload, msg.Error != "")
		}

	default:
		s.log.Debug().Str("kind", msg.Kind).Msg("unrecognized inbound message kind")
	}
}
