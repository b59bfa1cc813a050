package domain

import "time"

// Group belongs to one organization. Groups are soft-deleted, never
// hard-deleted; DeletedAt/DeletedBy carry the delete provenance until
// an explicit restore clears them.
type Group struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	Locale         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
	DeletedBy      *string
}

// Deleted reports whether the group is currently soft-deleted.
func (g *Group) Deleted() bool {
	return g.DeletedAt != nil
}
