// Package realtime delivers new-message events to connected clients by
// conversation room. Delivery is best-effort and unpersisted: a client
// that is disconnected or never joined a room receives nothing
// retroactively, and room membership does not survive the connection.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is the wire shape of a server→client room event.
type Event struct {
	Name           string          `json:"event"`
	ConversationID string          `json:"conversationId"`
	Message        json.RawMessage `json:"message,omitempty"`
}

// Subscriber is one live connection's view of the hub. Events arrive on
// the channel; the connection owner pumps them to the socket.
type Subscriber struct {
	id     string
	events chan Event
}

// Events exposes the delivery channel.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Hub maintains per-connection room subscriptions and fans local events
// out to them. It is an explicitly constructed, injected instance with a
// lifecycle owned by the server, not a process-wide global.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscriber]struct{}
	joined map[*Subscriber]map[string]struct{}
	buffer int
	logger *zap.Logger
	closed bool
}

// NewHub constructs a hub. buffer caps each subscriber's pending events.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		rooms:  make(map[string]map[*Subscriber]struct{}),
		joined: make(map[*Subscriber]map[string]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Register creates a subscriber for a new connection.
func (h *Hub) Register() *Subscriber {
	sub := &Subscriber{
		id:     uuid.NewString(),
		events: make(chan Event, h.buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.events)
		return sub
	}
	h.joined[sub] = make(map[string]struct{})
	return sub
}

// Unregister removes the subscriber from every room and closes its
// channel. Safe to call once per subscriber.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, ok := h.joined[sub]
	if !ok {
		return
	}
	for room := range rooms {
		h.leaveLocked(sub, room)
	}
	delete(h.joined, sub)
	close(sub.events)
}

// Join subscribes the connection to a conversation room.
func (h *Hub) Join(sub *Subscriber, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.joined[sub]; !ok {
		return
	}
	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Subscriber]struct{})
	}
	h.rooms[conversationID][sub] = struct{}{}
	h.joined[sub][conversationID] = struct{}{}
}

// Leave unsubscribes the connection from a conversation room.
func (h *Hub) Leave(sub *Subscriber, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if joined, ok := h.joined[sub]; ok {
		delete(joined, conversationID)
	}
	h.leaveLocked(sub, conversationID)
}

// Publish delivers an event to every local subscriber of the room. Slow
// subscribers are skipped rather than blocking the fan-out. Sends happen
// under the read lock: Unregister and Close only close a subscriber
// channel while holding the write lock, so a send can never race a
// close. The sends are non-blocking, so the lock is held briefly.
func (h *Hub) Publish(conversationID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[conversationID] {
		select {
		case sub.events <- event:
		default:
			if h.logger != nil {
				h.logger.Warn("dropping event for slow subscriber",
					zap.String("conversation_id", conversationID),
					zap.String("subscriber_id", sub.id))
			}
		}
	}
}

// Close tears the hub down, closing every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.joined {
		close(sub.events)
	}
	h.rooms = make(map[string]map[*Subscriber]struct{})
	h.joined = make(map[*Subscriber]map[string]struct{})
}

func (h *Hub) leaveLocked(sub *Subscriber, conversationID string) {
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, sub)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}
