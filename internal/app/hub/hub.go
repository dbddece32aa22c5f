/*
Package hub implements the in-process broadcast fan-out for presence and chat events.

The hub manages two topic kinds: the single implicit global topic every connected
listener receives, and one topic per lobby id that only listeners who joined that
lobby receive. Delivery is fire-and-forget and at-most-once; a stalled listener
never blocks a publisher.
*/
package hub

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"lklobby/internal/pkg/logx"
)

// GlobalTopic is the implicit topic delivered to every subscribed listener.
const GlobalTopic = "global"

// Event names published by the presence registry and the lobby store.
const (
	EventStatusUpdate     = "status_update"
	EventNewMessage       = "new_message"
	EventNewGlobalMessage = "new_global_message"
	EventLobbyUpdate      = "lobby_update"
	EventNewInvite        = "new_invite"
)

// Envelope is the wire frame wrapping every published event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub is the publish/subscribe fan-out. All methods are safe for concurrent use.
type Hub struct {
	mu sync.RWMutex

	// topics maps a topic name to its current subscriber set.
	topics map[string]map[*Listener]struct{}

	// memberships maps a listener to the set of topics it joined, so a
	// disconnecting listener can be detached from everything at once.
	memberships map[*Listener]map[string]struct{}

	logger zerolog.Logger
}

// New constructs an empty Hub.
func New() *Hub {
	return &Hub{
		topics:      make(map[string]map[*Listener]struct{}),
		memberships: make(map[*Listener]map[string]struct{}),
		logger:      logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Subscribe adds the listener to the given topic. Subscribing twice to the
// same topic is a no-op.
func (h *Hub) Subscribe(l *Listener, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if l.closed {
		return
	}

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Listener]struct{})
		h.topics[topic] = subs
	}
	subs[l] = struct{}{}

	joined, ok := h.memberships[l]
	if !ok {
		joined = make(map[string]struct{})
		h.memberships[l] = joined
	}
	joined[topic] = struct{}{}
}

// Unsubscribe removes the listener from the given topic.
func (h *Hub) Unsubscribe(l *Listener, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detach(l, topic)
}

// UnsubscribeAll removes the listener from every topic it joined and closes
// its delivery channel. Called when a listener disconnects.
func (h *Hub) UnsubscribeAll(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic := range h.memberships[l] {
		h.detach(l, topic)
	}
	delete(h.memberships, l)

	// Safe to close here: publishers hold the read lock while sending, so no
	// send can race this close.
	if !l.closed {
		l.closed = true
		close(l.send)
	}
}

// detach removes the listener from one topic, dropping the topic when empty.
// Caller must hold the write lock.
func (h *Hub) detach(l *Listener, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, l)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	if joined, ok := h.memberships[l]; ok {
		delete(joined, topic)
	}
}

// Publish delivers the event to every current subscriber of the topic.
// The payload is marshaled once; listeners whose buffers are full are skipped.
func (h *Hub) Publish(topic, event string, payload any) {
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal event for broadcast.")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for l := range h.topics[topic] {
		select {
		case l.send <- frame:
		default:
			h.logger.Warn().
				Str("listener_id", l.id).
				Str("topic", topic).
				Str("event", event).
				Msg("Listener send buffer full, dropping event.")
		}
	}
}

// Subscribers reports the current subscriber count for a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Shutdown detaches and closes every listener.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for l := range h.memberships {
		if !l.closed {
			l.closed = true
			close(l.send)
		}
	}
	h.topics = make(map[string]map[*Listener]struct{})
	h.memberships = make(map[*Listener]map[string]struct{})

	h.logger.Info().Msg("Hub shutdown complete.")
}
