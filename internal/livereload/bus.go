// Package livereload implements the core live-reload coordination
// engine: the filesystem watcher, the broadcast bus, the HTML injector,
// and the per-browser WebSocket session loop (spec.md §2, C1-C5).
package livereload

import "sync"

// busCapacity is the fixed per-subscriber buffer size (spec.md §4.2).
// A lagging subscriber misses messages rather than blocking the
// producer — acceptable for reload semantics since the next change
// resynchronises the page.
const busCapacity = 16

// Bus is a multi-producer, multi-subscriber broadcast channel of
// string-framed messages (spec.md §3, Bus Message). Publish never
// blocks: a full subscriber channel drops the message for that
// subscriber only.
//
// Grounded on the pack's own broadcast-event bus shape
// (nugget-thane-ai-agent's events.Bus), generalized here to carry the
// six message prefixes of spec.md §3 instead of a typed Event.
type Bus struct {
	mu         sync.RWMutex
	subs       map[chan string]struct{}
	recvToSend map[<-chan string]chan string
}

// NewBus returns a ready-to-use Bus.
func NewBus() *Bus {
	return &Bus{
		subs:       make(map[chan string]struct{}),
		recvToSend: make(map[<-chan string]chan string),
	}
}

// Publish sends msg to every current subscriber. Returns the number of
// subscribers the message was handed to (not necessarily delivered, if
// a subscriber's buffer was full).
func (b *Bus) Publish(msg string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for ch := range b.subs {
		select {
		case ch <- msg:
			n++
		default:
			// Subscriber is lagging — drop for this subscriber only.
		}
	}
	return n
}

// Subscribe registers a new subscriber and returns its receive channel.
// The caller must eventually call Unsubscribe.
func (b *Bus) Subscribe() <-chan string {
	ch := make(chan string, busCapacity)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// more than once with the same channel.
func (b *Bus) Unsubscribe(ch <-chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount reports how many sessions are currently subscribed.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
