package domain

import "time"

// MessageType differentiates message payload kinds.
type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeImage  MessageType = "IMAGE"
	MessageTypeSystem MessageType = "SYSTEM"
)

// Message is an immutable entry in a conversation thread. Only its
// Artifact may be regenerated after creation.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	MessageType    MessageType
	Body           string
	Language       string
	ContentURL     *string
	CreatedAt      time.Time

	Artifact *MessageArtifact
}

// MessageArtifact holds the enrichment output for one message. At most one
// exists per message; regeneration replaces it in place.
type MessageArtifact struct {
	ID          string
	MessageID   string
	Translation *string
	Suggestions []string
	Extra       map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
