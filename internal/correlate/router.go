// Package correlate implements the request/response correlation router
// that lets the MCP control surface (internal/mcpserver) ask a browser
// to do something — take a screenshot, query the DOM — and wait for
// that specific browser's reply, even though both request and reply
// travel over the same broadcast medium as every other live-reload
// message (spec.md §4.7, C7).
package correlate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout is the per-call wait before a correlated request is
// considered failed (spec.md §4.7: "the per-request timeout (10 s)").
const DefaultTimeout = 10 * time.Second

// Publisher sends a framed command to every connected browser session.
// internal/livereload.Bus satisfies this.
type Publisher interface {
	Publish(msg string) int
}

// reply is what a matching *_response Browser Message resolves a
// pending request to.
type reply struct {
	payload string
	isError bool
}

// Router holds one pending request per "<channel>:<id>" key, so
// concurrent tool calls on the same channel ("screenshot", "dom") each
// wait on their own reply channel and only see replies carrying their
// own id. mu guards the pending map only; it is never held while a
// request waits for its reply.
type Router struct {
	mu      sync.Mutex
	pending map[string]chan reply
}

// NewRouter returns a ready-to-use Router.
func NewRouter() *Router {
	return &Router{pending: make(map[string]chan reply)}
}

// NewID builds a correlation id of the form "<prefix>_<millis>", e.g.
// "ss_1700000000000" or "dom_1700000000000" — the exact shape
// spec.md §4.7 and scenario S4 require.
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixMilli())
}

// Request publishes cmd (already carrying id) on bus under channel
// name ch (e.g. "screenshot", "dom"), then waits up to DefaultTimeout
// for a Deliver call carrying the same id on the same channel.
//
// If no browser session is connected, Publish reaches zero subscribers
// and Request fails immediately with "No browsers connected" rather
// than waiting out the full timeout (spec.md scenario S5).
func (r *Router) Request(ctx context.Context, bus Publisher, ch, id, cmd string) (string, error) {
	key := ch + ":" + id
	replyCh := make(chan reply, 1)

	r.mu.Lock()
	r.pending[key] = replyCh
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()
	}()

	if n := bus.Publish(cmd); n == 0 {
		return "", fmt.Errorf("No browsers connected")
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	select {
	case rep := <-replyCh:
		if rep.isError {
			return "", fmt.Errorf("%s", rep.payload)
		}
		return rep.payload, nil
	case <-ctx.Done():
		return "", fmt.Errorf("timed out after 10s")
	}
}

// Deliver is called by internal/livereload.Session whenever a
// screenshot_response or dom_response Browser Message arrives, with
// ch set to "screenshot" or "dom", id taken from the message's url
// field, and payload from its msg field (or, when isError is set, the
// browser's error text). A response whose id has no
// waiter is discarded silently (spec.md §4.7).
func (r *Router) Deliver(ch, id, payload string, isError bool) {
	key := ch + ":" + id
	r.mu.Lock()
	replyCh, ok := r.pending[key]
	r.mu.Unlock()
	if !ok {
		return
	}
	select {
	case replyCh <- reply{payload: payload, isError: isError}:
	default:
	}
}
