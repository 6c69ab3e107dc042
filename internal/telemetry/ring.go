package telemetry

import "sync"

// ringCap is the maximum number of entries kept per buffer (spec.md
// §5, I2: "capped at 500 entries; on overflow the oldest half is
// discarded").
const ringCap = 500

// Ring is a fixed-capacity FIFO buffer. When full, Push discards the
// oldest half in one shot rather than evicting one-at-a-time — cheaper
// under sustained high-frequency logging, and exactly the policy
// spec.md §5 specifies. Grounded on the pack's other bounded-history
// buffers (matgreaves-rig/server-eventlog.go's lifecycle/log slices),
// generalized here to a generic halve-on-overflow ring instead of an
// unbounded append log.
type Ring[T any] struct {
	mu      sync.Mutex
	entries []T
}

// NewRing returns an empty Ring.
func NewRing[T any]() *Ring[T] {
	return &Ring[T]{entries: make([]T, 0, ringCap)}
}

// Push appends v, halving the buffer first if it's already at capacity.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) >= ringCap {
		half := len(r.entries) / 2
		copy(r.entries, r.entries[half:])
		r.entries = r.entries[:len(r.entries)-half]
	}
	r.entries = append(r.entries, v)
}

// Snapshot returns a copy of the buffer's current contents, oldest
// first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear empties the buffer.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}

// Rings bundles the two telemetry buffers a live-reload session
// populates (spec.md §5, C6).
type Rings struct {
	Console *Ring[ConsoleEntry]
	Network *Ring[NetworkEntry]
}

// NewRings returns a ready-to-use Rings pair.
func NewRings() *Rings {
	return &Rings{
		Console: NewRing[ConsoleEntry](),
		Network: NewRing[NetworkEntry](),
	}
}
