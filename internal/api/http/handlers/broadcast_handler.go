package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/casework-service/internal/api/dto"
	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/service"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

// BroadcastHandler manages bulk message delivery.
type BroadcastHandler struct {
	service *service.BroadcastService
}

// NewBroadcastHandler constructs handler.
func NewBroadcastHandler(broadcastService *service.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{service: broadcastService}
}

// Broadcast POST /broadcasts.
func (h *BroadcastHandler) Broadcast(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	result, err := h.service.Broadcast(c.Context(), principal, service.BroadcastInput{
		GroupID:      req.GroupID,
		Body:         req.Body,
		Language:     req.Language,
		RecipientIDs: req.RecipientIDs,
	})
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if result.Failed > 0 {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(fiber.Map{"data": result})
}
