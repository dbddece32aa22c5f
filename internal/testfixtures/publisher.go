package testfixtures

import "sync"

// RecordedEvent is one captured broadcast publication.
type RecordedEvent struct {
	Topic   string
	Event   string
	Payload any
}

// EventRecorder is a Publisher implementation that captures every publication
// for later assertions.
type EventRecorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// NewEventRecorder constructs an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Publish records the publication.
func (r *EventRecorder) Publish(topic, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Topic: topic, Event: event, Payload: payload})
}

// Events returns a copy of all recorded publications in order.
func (r *EventRecorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// ByEvent returns the recorded publications with the given event name.
func (r *EventRecorder) ByEvent(event string) []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RecordedEvent
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards everything recorded so far.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
