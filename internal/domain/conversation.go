package domain

import "time"

// ConversationStatus enumerates lifecycle states for conversations.
// Transitions happen only via explicit case updates, never implicitly
// from sending a message.
type ConversationStatus string

const (
	ConversationStatusActive    ConversationStatus = "ACTIVE"
	ConversationStatusOnHold    ConversationStatus = "ON_HOLD"
	ConversationStatusResolved  ConversationStatus = "RESOLVED"
	ConversationStatusEscalated ConversationStatus = "ESCALATED"
)

// Conversation connects exactly one worker to one group. Group and worker
// never change after creation except via the audited group-data migration.
type Conversation struct {
	ID            string
	GroupID       string
	WorkerID      string
	Subject       *string
	Status        ConversationStatus
	LastMessageAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
