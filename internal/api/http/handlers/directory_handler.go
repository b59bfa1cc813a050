package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/casework-service/internal/api/dto"
	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/directory"
	"github.com/spec-kit/casework-service/internal/domain"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

// DirectoryHandler manages organization, group, and membership endpoints.
type DirectoryHandler struct {
	service *directory.Service
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(directoryService *directory.Service) *DirectoryHandler {
	return &DirectoryHandler{service: directoryService}
}

// CreateOrganization POST /organizations.
func (h *DirectoryHandler) CreateOrganization(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.CreateOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	org, err := h.service.CreateOrganization(c.Context(), principal, req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": org})
}

// CreateGroup POST /groups.
func (h *DirectoryHandler) CreateGroup(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	group, err := h.service.CreateGroup(c.Context(), principal, directory.GroupInput{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Locale:         req.Locale,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewGroupResponse(group)})
}

// ListGroups GET /organizations/:id/groups.
func (h *DirectoryHandler) ListGroups(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	includeDeleted := c.QueryBool("include_deleted")
	groups, err := h.service.ListGroups(c.Context(), principal, c.Params("id"), includeDeleted)
	if err != nil {
		return err
	}
	items := make([]dto.GroupResponse, 0, len(groups))
	for i := range groups {
		items = append(items, dto.NewGroupResponse(&groups[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteGroup DELETE /groups/:id.
func (h *DirectoryHandler) DeleteGroup(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := h.service.SoftDeleteGroup(c.Context(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestoreGroup POST /groups/:id/restore.
func (h *DirectoryHandler) RestoreGroup(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := h.service.RestoreGroup(c.Context(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddMembership POST /groups/:id/memberships.
func (h *DirectoryHandler) AddMembership(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.AddMembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	membership, err := h.service.AddMembership(c.Context(), principal, c.Params("id"), req.UserID, domain.GroupRole(req.Role))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewMembershipResponse(membership)})
}

// ListMemberships GET /users/:id/memberships.
func (h *DirectoryHandler) ListMemberships(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	memberships, err := h.service.ListMembershipsForUser(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.MembershipResponse, 0, len(memberships))
	for i := range memberships {
		items = append(items, dto.NewMembershipResponse(&memberships[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MigrateGroup POST /groups/:id/migrate.
func (h *DirectoryHandler) MigrateGroup(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.MigrateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	if err := h.service.MigrateGroupData(c.Context(), principal, c.Params("id"), req.ToGroupID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"migrated": true}})
}
