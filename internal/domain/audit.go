package domain

import "time"

// TagChangeAction enumerates audited mutation kinds.
type TagChangeAction string

const (
	TagChangeActionAdd     TagChangeAction = "ADD"
	TagChangeActionRemove  TagChangeAction = "REMOVE"
	TagChangeActionUpdate  TagChangeAction = "UPDATE"
	TagChangeActionMigrate TagChangeAction = "MIGRATE"
)

// TagChangeLog is an append-only audit record for case field mutations
// and the group-data migration.
type TagChangeLog struct {
	ID             string
	CaseID         *string
	ConversationID *string
	ActorID        string
	Action         TagChangeAction
	Field          string
	Previous       *string
	Next           *string
	AIOriginated   bool
	CreatedAt      time.Time
}

// SuggestionUsageLog is an append-only record of a reply suggestion being
// taken up by a manager.
type SuggestionUsageLog struct {
	ID         string
	MessageID  string
	UserID     string
	Suggestion string
	Position   int
	CreatedAt  time.Time
}
