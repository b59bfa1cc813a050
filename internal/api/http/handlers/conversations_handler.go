package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/casework-service/internal/api/dto"
	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/domain"
	"github.com/spec-kit/casework-service/internal/service"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

// ConversationsHandler manages conversation and message endpoints.
type ConversationsHandler struct {
	service *service.ConversationService
}

// NewConversationsHandler constructs handler.
func NewConversationsHandler(conversationService *service.ConversationService) *ConversationsHandler {
	return &ConversationsHandler{service: conversationService}
}

// Create POST /conversations.
func (h *ConversationsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.CreateConversationInput{
		GroupID:  req.GroupID,
		WorkerID: req.WorkerID,
		Subject:  req.Subject,
	}
	if req.InitialMessage != nil {
		input.InitialMessage = &service.AppendMessageInput{
			Body:        req.InitialMessage.Body,
			Language:    req.InitialMessage.Language,
			MessageType: req.InitialMessage.MessageType,
			ContentURL:  req.InitialMessage.ContentURL,
		}
	}
	conversation, err := h.service.CreateConversation(c.Context(), principal, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewConversationSummary(conversation)})
}

// List GET /conversations.
func (h *ConversationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	conversations, err := h.service.ListConversationsForUser(c.Context(), principal)
	if err != nil {
		return err
	}
	items := make([]dto.ConversationSummary, 0, len(conversations))
	for i := range conversations {
		items = append(items, dto.NewConversationSummary(&conversations[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /conversations/:id.
func (h *ConversationsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	conversation, messages, err := h.service.GetConversationWithMessages(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	detail := dto.ConversationDetailResponse{
		ConversationSummary: dto.NewConversationSummary(conversation),
		Messages:            make([]dto.MessageResponse, 0, len(messages)),
	}
	for i := range messages {
		detail.Messages = append(detail.Messages, dto.NewMessageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": detail})
}

// AppendMessage POST /conversations/:id/messages.
func (h *ConversationsHandler) AppendMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.AppendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" && req.ContentURL == nil {
		return apperrors.NewValidationError("body or content_url required", nil)
	}

	message, err := h.service.AppendMessage(c.Context(), principal, c.Params("id"), service.AppendMessageInput{
		Body:        req.Body,
		Language:    req.Language,
		MessageType: req.MessageType,
		ContentURL:  req.ContentURL,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewMessageResponse(message)})
}

// UpdateStatus PATCH /conversations/:id/status.
func (h *ConversationsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	switch req.Status {
	case domain.ConversationStatusActive, domain.ConversationStatusOnHold,
		domain.ConversationStatusResolved, domain.ConversationStatusEscalated:
	default:
		return apperrors.NewValidationError("unknown status", map[string]any{"status": string(req.Status)})
	}

	conversation, err := h.service.UpdateStatus(c.Context(), principal, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewConversationSummary(conversation)})
}

// PreviewGreeting GET /conversations/:id/greeting.
func (h *ConversationsHandler) PreviewGreeting(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	preview, err := h.service.PreviewGreeting(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.GreetingPreviewResponse{Suggestions: preview.Suggestions}})
}

// RegenerateArtifact POST /messages/:id/artifact/regenerate.
func (h *ConversationsHandler) RegenerateArtifact(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	artifact, err := h.service.RegenerateArtifact(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewArtifactResponse(artifact)})
}
