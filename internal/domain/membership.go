package domain

import "time"

// GroupRole is the role a user holds inside one group, distinct from the
// global Role tier.
type GroupRole string

const (
	GroupRoleMember  GroupRole = "MEMBER"
	GroupRoleManager GroupRole = "MANAGER"
)

// Membership links a user to a group. Unique per (group, user).
type Membership struct {
	ID        string
	GroupID   string
	UserID    string
	Role      GroupRole
	CreatedAt time.Time
}
