package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/casework-service/internal/api/dto"
	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/service"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

// ConsultationsHandler manages consultation case and audit endpoints.
type ConsultationsHandler struct {
	service *service.ConsultationService
}

// NewConsultationsHandler constructs handler.
func NewConsultationsHandler(consultationService *service.ConsultationService) *ConsultationsHandler {
	return &ConsultationsHandler{service: consultationService}
}

// GetCase GET /conversations/:id/case.
func (h *ConsultationsHandler) GetCase(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	consultation, err := h.service.GetCase(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseResponse(consultation)})
}

// UpsertCase PUT /conversations/:id/case.
func (h *ConsultationsHandler) UpsertCase(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.UpsertCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	consultation, err := h.service.UpsertCase(c.Context(), principal, c.Params("id"), service.CaseUpdateInput{
		Category:     req.Category,
		Tags:         req.Tags,
		Status:       req.Status,
		AIOriginated: req.AIOriginated,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseResponse(consultation)})
}

// GenerateTags POST /conversations/:id/case/tags/generate.
func (h *ConsultationsHandler) GenerateTags(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	tags, err := h.service.GenerateTags(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"tags": tags}})
}

// RecordSuggestionUsage POST /suggestion-usages.
func (h *ConsultationsHandler) RecordSuggestionUsage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.SuggestionUsageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	if err := h.service.RecordSuggestionUsage(c.Context(), principal, req.MessageID, req.Suggestion, req.Position); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusCreated)
}

// ListTagChanges GET /conversations/:id/tag-changes.
func (h *ConsultationsHandler) ListTagChanges(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	limit := c.QueryInt("limit", 50)
	changes, err := h.service.ListTagChanges(c.Context(), principal, c.Params("id"), limit)
	if err != nil {
		return err
	}
	items := make([]dto.TagChangeResponse, 0, len(changes))
	for i := range changes {
		items = append(items, dto.NewTagChangeResponse(&changes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
