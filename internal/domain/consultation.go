package domain

import "time"

// CaseStatus enumerates consultation case states.
type CaseStatus string

const (
	CaseStatusOpen       CaseStatus = "OPEN"
	CaseStatusInProgress CaseStatus = "IN_PROGRESS"
	CaseStatusClosed     CaseStatus = "CLOSED"
)

// ConsultationCase carries the case state for one conversation. Exactly
// one exists per conversation, maintained via upsert-by-conversation.
type ConsultationCase struct {
	ID             string
	ConversationID string
	Category       string
	Tags           []string
	Status         CaseStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
