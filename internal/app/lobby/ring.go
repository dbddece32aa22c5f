/*
Package lobby implements the in-memory, ephemeral chat state: the global
message stream and per-lobby membership and message streams.

This file defines the fixed-capacity message ring. Appending past capacity
evicts the oldest entry with O(1) amortized cost.
*/
package lobby

// Ring is a bounded FIFO message history. The zero value is not usable;
// construct with NewRing.
type Ring struct {
	buf   []Message
	start int
	count int
}

// NewRing constructs a ring holding at most capacity messages.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]Message, capacity)}
}

// Append adds a message, evicting the oldest when the ring is full.
func (r *Ring) Append(m Message) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = m
		r.count++
		return
	}

	r.buf[r.start] = m
	r.start = (r.start + 1) % len(r.buf)
}

// Snapshot returns the messages in insertion order, oldest first.
func (r *Ring) Snapshot() []Message {
	out := make([]Message, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Len reports the number of messages currently held.
func (r *Ring) Len() int {
	return r.count
}

// Cap reports the fixed capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}
