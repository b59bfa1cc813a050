package dto

import (
	"time"

	"github.com/spec-kit/casework-service/internal/domain"
)

// CreateOrganizationRequest payload.
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateGroupRequest payload.
type CreateGroupRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	Description    string `json:"description"`
	Locale         string `json:"locale"`
}

// AddMembershipRequest payload.
type AddMembershipRequest struct {
	UserID string           `json:"user_id" validate:"required"`
	Role   domain.GroupRole `json:"role" validate:"required,oneof=MEMBER MANAGER"`
}

// MigrateGroupRequest payload.
type MigrateGroupRequest struct {
	ToGroupID string `json:"to_group_id" validate:"required"`
}

// GroupResponse response.
type GroupResponse struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Locale         string     `json:"locale"`
	CreatedAt      time.Time  `json:"created_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// MembershipResponse response.
type MembershipResponse struct {
	ID        string           `json:"id"`
	GroupID   string           `json:"group_id"`
	UserID    string           `json:"user_id"`
	Role      domain.GroupRole `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewGroupResponse maps the domain model.
func NewGroupResponse(g *domain.Group) GroupResponse {
	return GroupResponse{
		ID:             g.ID,
		OrganizationID: g.OrganizationID,
		Name:           g.Name,
		Description:    g.Description,
		Locale:         g.Locale,
		CreatedAt:      g.CreatedAt,
		DeletedAt:      g.DeletedAt,
	}
}

// NewMembershipResponse maps the domain model.
func NewMembershipResponse(m *domain.Membership) MembershipResponse {
	return MembershipResponse{
		ID:        m.ID,
		GroupID:   m.GroupID,
		UserID:    m.UserID,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
}
