/*
Package hub implements the in-process broadcast fan-out for presence and chat events.

This file defines the Listener, the per-connection delivery endpoint. Each listener
owns a bounded buffered channel; the hub drops events for a listener whose buffer
is full rather than blocking the publishing mutation path.
*/
package hub

// DefaultListenerBuffer is the per-listener event queue depth.
const DefaultListenerBuffer = 256

// Listener is a single subscriber endpoint. Create it with NewListener, attach
// it to topics via Hub.Subscribe, and drain C until it is closed by
// Hub.UnsubscribeAll or Hub.Shutdown.
type Listener struct {
	id   string
	send chan []byte

	// closed is guarded by the owning hub's lock.
	closed bool
}

// NewListener constructs a listener with the given identifier and buffer depth.
// A non-positive buffer falls back to DefaultListenerBuffer.
func NewListener(id string, buffer int) *Listener {
	if buffer <= 0 {
		buffer = DefaultListenerBuffer
	}
	return &Listener{
		id:   id,
		send: make(chan []byte, buffer),
	}
}

// ID returns the listener identifier used in logs.
func (l *Listener) ID() string {
	return l.id
}

// C returns the delivery channel. It is closed when the listener is fully
// unsubscribed; each element is one marshaled Envelope frame.
func (l *Listener) C() <-chan []byte {
	return l.send
}
