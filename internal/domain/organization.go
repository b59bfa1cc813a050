package domain

import "time"

// Organization is the top of the group hierarchy.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
