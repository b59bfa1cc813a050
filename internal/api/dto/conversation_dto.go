package dto

import (
	"time"

	"github.com/spec-kit/casework-service/internal/domain"
)

// CreateConversationRequest payload.
type CreateConversationRequest struct {
	GroupID        string                `json:"group_id" validate:"required"`
	WorkerID       string                `json:"worker_id" validate:"required"`
	Subject        *string               `json:"subject"`
	InitialMessage *AppendMessageRequest `json:"initial_message"`
}

// AppendMessageRequest payload.
type AppendMessageRequest struct {
	Body        string             `json:"body"`
	Language    string             `json:"language"`
	MessageType domain.MessageType `json:"message_type"`
	ContentURL  *string            `json:"content_url"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.ConversationStatus `json:"status" validate:"required"`
}

// ConversationSummary response.
type ConversationSummary struct {
	ID            string                    `json:"id"`
	GroupID       string                    `json:"group_id"`
	WorkerID      string                    `json:"worker_id"`
	Subject       *string                   `json:"subject"`
	Status        domain.ConversationStatus `json:"status"`
	LastMessageAt *time.Time                `json:"last_message_at"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// ConversationDetailResponse provides the conversation with its thread.
type ConversationDetailResponse struct {
	ConversationSummary
	Messages []MessageResponse `json:"messages"`
}

// MessageResponse represents one thread entry.
type MessageResponse struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	SenderID       string             `json:"sender_id"`
	MessageType    domain.MessageType `json:"message_type"`
	Body           string             `json:"body"`
	Language       string             `json:"language"`
	ContentURL     *string            `json:"content_url,omitempty"`
	Artifact       *ArtifactResponse  `json:"artifact,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// ArtifactResponse carries enrichment output.
type ArtifactResponse struct {
	MessageID   string         `json:"message_id"`
	Translation *string        `json:"translation"`
	Suggestions []string       `json:"suggestions"`
	Extra       map[string]any `json:"extra,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// GreetingPreviewResponse carries unpersisted opener suggestions.
type GreetingPreviewResponse struct {
	Suggestions []string `json:"suggestions"`
}

// NewConversationSummary maps the domain model.
func NewConversationSummary(c *domain.Conversation) ConversationSummary {
	return ConversationSummary{
		ID:            c.ID,
		GroupID:       c.GroupID,
		WorkerID:      c.WorkerID,
		Subject:       c.Subject,
		Status:        c.Status,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// NewMessageResponse maps the domain model, artifact included when present.
func NewMessageResponse(m *domain.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		MessageType:    m.MessageType,
		Body:           m.Body,
		Language:       m.Language,
		ContentURL:     m.ContentURL,
		CreatedAt:      m.CreatedAt,
	}
	if m.Artifact != nil {
		resp.Artifact = NewArtifactResponse(m.Artifact)
	}
	return resp
}

// NewArtifactResponse maps the domain model.
func NewArtifactResponse(a *domain.MessageArtifact) *ArtifactResponse {
	return &ArtifactResponse{
		MessageID:   a.MessageID,
		Translation: a.Translation,
		Suggestions: a.Suggestions,
		Extra:       a.Extra,
		UpdatedAt:   a.UpdatedAt,
	}
}
