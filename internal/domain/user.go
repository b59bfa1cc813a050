package domain

import "time"

// Role is the global authority tier of a user.
type Role string

const (
	RoleWorker      Role = "WORKER"
	RoleManager     Role = "MANAGER"
	RoleAreaManager Role = "AREA_MANAGER"
	RoleSystemAdmin Role = "SYSTEM_ADMIN"
)

// UserStatus represents lifecycle states for a user account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for platform users (case workers and managers).
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	Locale    string
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
