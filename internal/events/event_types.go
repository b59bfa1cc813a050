package events

import (
	"time"

	"github.com/spec-kit/casework-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventNewMessage          EventType = "new-message"
	EventConversationCreated EventType = "conversation-created"
	EventGroupMigrated       EventType = "group-migrated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	ConversationID string      `json:"conversation_id"`
	ActorID        string      `json:"actor_id"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// NewMessagePayload carries the persisted message for room delivery.
type NewMessagePayload struct {
	Message domain.Message `json:"message"`
}

// ConversationCreatedPayload payload.
type ConversationCreatedPayload struct {
	GroupID  string `json:"group_id"`
	WorkerID string `json:"worker_id"`
}

// GroupMigratedPayload payload.
type GroupMigratedPayload struct {
	FromGroupID string `json:"from_group_id"`
	ToGroupID   string `json:"to_group_id"`
}
