package dto

import (
	"time"

	"github.com/spec-kit/casework-service/internal/domain"
)

// UpsertCaseRequest payload.
type UpsertCaseRequest struct {
	Category     string            `json:"category"`
	Tags         []string          `json:"tags"`
	Status       domain.CaseStatus `json:"status" validate:"required,oneof=OPEN IN_PROGRESS CLOSED"`
	AIOriginated bool              `json:"ai_originated"`
}

// SuggestionUsageRequest payload.
type SuggestionUsageRequest struct {
	MessageID  string `json:"message_id" validate:"required"`
	Suggestion string `json:"suggestion" validate:"required"`
	Position   int    `json:"position" validate:"gte=0"`
}

// CaseResponse response.
type CaseResponse struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Category       string            `json:"category"`
	Tags           []string          `json:"tags"`
	Status         domain.CaseStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TagChangeResponse represents one audit entry.
type TagChangeResponse struct {
	ID           string                 `json:"id"`
	ActorID      string                 `json:"actor_id"`
	Action       domain.TagChangeAction `json:"action"`
	Field        string                 `json:"field"`
	Previous     *string                `json:"previous"`
	Next         *string                `json:"next"`
	AIOriginated bool                   `json:"ai_originated"`
	CreatedAt    time.Time              `json:"created_at"`
}

// NewCaseResponse maps the domain model.
func NewCaseResponse(c *domain.ConsultationCase) CaseResponse {
	return CaseResponse{
		ID:             c.ID,
		ConversationID: c.ConversationID,
		Category:       c.Category,
		Tags:           c.Tags,
		Status:         c.Status,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// NewTagChangeResponse maps the domain model.
func NewTagChangeResponse(l *domain.TagChangeLog) TagChangeResponse {
	return TagChangeResponse{
		ID:           l.ID,
		ActorID:      l.ActorID,
		Action:       l.Action,
		Field:        l.Field,
		Previous:     l.Previous,
		Next:         l.Next,
		AIOriginated: l.AIOriginated,
		CreatedAt:    l.CreatedAt,
	}
}
