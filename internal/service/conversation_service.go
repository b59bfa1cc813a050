package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spec-kit/casework-service/internal/accesscontrol"
	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/compliance"
	"github.com/spec-kit/casework-service/internal/domain"
	"github.com/spec-kit/casework-service/internal/enrichment"
	"github.com/spec-kit/casework-service/internal/events"
	"github.com/spec-kit/casework-service/internal/persistence"
	"github.com/spec-kit/casework-service/internal/repository"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

// Enricher is the slice of the enrichment pipeline the conversation core
// depends on.
type Enricher interface {
	EnrichMessage(ctx context.Context, conversation *domain.Conversation, message *domain.Message) (*domain.MessageArtifact, error)
	Regenerate(ctx context.Context, conversation *domain.Conversation, message *domain.Message) (*domain.MessageArtifact, error)
	PreviewGreeting(ctx context.Context, conversation *domain.Conversation) (*enrichment.Preview, error)
	GenerateTags(ctx context.Context, conversation *domain.Conversation) ([]string, error)
}

// ConversationService coordinates conversation and message workflows.
type ConversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	artifacts     repository.ArtifactRepository
	memberships   repository.MembershipRepository
	groups        repository.GroupRepository
	tx            persistence.TxRunner
	enricher      Enricher
	compliance    compliance.Checker
	dispatcher    events.Dispatcher
	logger        *zap.Logger

	// inlineEnrichment selects whether appends run the pipeline before
	// returning, or leave artifacts to explicit regenerate calls.
	inlineEnrichment bool
}

// ConversationDependencies bundles collaborators for the service.
type ConversationDependencies struct {
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository
	ArtifactRepo     repository.ArtifactRepository
	MembershipRepo   repository.MembershipRepository
	GroupRepo        repository.GroupRepository
	Tx               persistence.TxRunner
	Enricher         Enricher
	Compliance       compliance.Checker
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	InlineEnrichment bool
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	return &ConversationService{
		conversations:    deps.ConversationRepo,
		messages:         deps.MessageRepo,
		artifacts:        deps.ArtifactRepo,
		memberships:      deps.MembershipRepo,
		groups:           deps.GroupRepo,
		tx:               deps.Tx,
		enricher:         deps.Enricher,
		compliance:       deps.Compliance,
		dispatcher:       deps.Dispatcher,
		logger:           deps.Logger,
		inlineEnrichment: deps.InlineEnrichment,
	}
}

// CreateConversationInput describes conversation creation payload.
type CreateConversationInput struct {
	GroupID        string
	WorkerID       string
	Subject        *string
	InitialMessage *AppendMessageInput
}

// AppendMessageInput describes a message payload.
type AppendMessageInput struct {
	Body        string
	Language    string
	MessageType domain.MessageType
	ContentURL  *string
}

// CreateConversation creates a conversation and, when given, its initial
// message in one transaction; both persist or neither does.
func (s *ConversationService) CreateConversation(ctx context.Context, principal *auth.Principal, input CreateConversationInput) (*domain.Conversation, error) {
	if input.GroupID == "" || input.WorkerID == "" {
		return nil, apperrors.NewValidationError("groupId and workerId required", nil)
	}
	if principal.Role == domain.RoleWorker && input.WorkerID != principal.ID {
		return nil, apperrors.NewForbidden("workers create only their own conversations")
	}

	group, err := s.groups.GetByID(ctx, input.GroupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("group", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if group.Deleted() {
		return nil, apperrors.NewNotFound("group", nil)
	}

	if err := s.authorizeGroup(ctx, principal, input.GroupID); err != nil {
		return nil, err
	}

	conversation := &domain.Conversation{
		GroupID:  input.GroupID,
		WorkerID: input.WorkerID,
		Subject:  input.Subject,
		Status:   domain.ConversationStatusActive,
	}
	var initial *domain.Message

	err = s.tx.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.conversations.WithTx(tx).Create(ctx, conversation); err != nil {
			return err
		}
		if input.InitialMessage != nil {
			initial = s.buildMessage(conversation.ID, principal.ID, *input.InitialMessage)
			if err := s.messages.WithTx(tx).Create(ctx, initial); err != nil {
				return err
			}
			return s.conversations.WithTx(tx).TouchLastMessage(ctx, conversation.ID, initial.CreatedAt)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:           events.EventConversationCreated,
		ConversationID: conversation.ID,
		ActorID:        principal.ID,
		Payload:        events.ConversationCreatedPayload{GroupID: conversation.GroupID, WorkerID: conversation.WorkerID},
	})
	if initial != nil {
		s.afterAppend(ctx, principal, conversation, initial)
	}
	return conversation, nil
}

// AppendMessage persists a message to an accessible conversation. The
// enrichment pipeline runs before returning when inline mode is on, but
// its failure never fails the send.
func (s *ConversationService) AppendMessage(ctx context.Context, principal *auth.Principal, conversationID string, input AppendMessageInput) (*domain.Message, error) {
	if strings.TrimSpace(input.Body) == "" && (input.ContentURL == nil || *input.ContentURL == "") {
		return nil, apperrors.NewValidationError("message body required", nil)
	}

	conversation, err := s.loadAuthorized(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}

	s.advisoryCheck(ctx, principal, input.Body)

	message := s.buildMessage(conversation.ID, principal.ID, input)
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if err := s.conversations.TouchLastMessage(ctx, conversation.ID, message.CreatedAt); err != nil {
		s.logger.Warn("failed to update conversation timestamp",
			zap.String("conversation_id", conversation.ID), zap.Error(err))
	}

	s.afterAppend(ctx, principal, conversation, message)
	return message, nil
}

// GetConversationWithMessages returns the thread oldest first with any
// attached artifacts.
func (s *ConversationService) GetConversationWithMessages(ctx context.Context, principal *auth.Principal, conversationID string) (*domain.Conversation, []domain.Message, error) {
	conversation, err := s.loadAuthorized(ctx, principal, conversationID)
	if err != nil {
		return nil, nil, err
	}

	msgs, err := s.messages.ListByConversation(ctx, conversation.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	messageIDs := lo.Map(msgs, func(m domain.Message, _ int) string { return m.ID })
	artifacts, err := s.artifacts.ListByMessageIDs(ctx, messageIDs)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	byMessage := lo.KeyBy(artifacts, func(a domain.MessageArtifact) string { return a.MessageID })
	for i := range msgs {
		if artifact, ok := byMessage[msgs[i].ID]; ok {
			attached := artifact
			msgs[i].Artifact = &attached
		}
	}
	return conversation, msgs, nil
}

// ListConversationsForUser returns the conversations within the caller's
// scope: admins and area managers see all, managers see their groups,
// workers see their own.
func (s *ConversationService) ListConversationsForUser(ctx context.Context, principal *auth.Principal) ([]domain.Conversation, error) {
	switch principal.Role {
	case domain.RoleSystemAdmin, domain.RoleAreaManager:
		result, err := s.conversations.ListAll(ctx)
		return result, apperrors.MapError(err)
	case domain.RoleManager:
		memberships, err := s.memberships.ListByUser(ctx, principal.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		groupIDs := lo.Map(memberships, func(m domain.Membership, _ int) string { return m.GroupID })
		result, err := s.conversations.ListByGroupIDs(ctx, groupIDs)
		return result, apperrors.MapError(err)
	default:
		result, err := s.conversations.ListByWorker(ctx, principal.ID)
		return result, apperrors.MapError(err)
	}
}

// EnsureActiveConversation returns the ACTIVE conversation for (group,
// worker), creating one lazily when none exists. Used by broadcast.
func (s *ConversationService) EnsureActiveConversation(ctx context.Context, groupID, workerID string) (*domain.Conversation, error) {
	conversation, err := s.conversations.GetActiveByGroupAndWorker(ctx, groupID, workerID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	conversation = &domain.Conversation{
		GroupID:  groupID,
		WorkerID: workerID,
		Status:   domain.ConversationStatusActive,
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return conversation, nil
}

// RegenerateArtifact explicitly re-runs enrichment for a message. Backend
// failure surfaces to the caller, unlike the inline path.
func (s *ConversationService) RegenerateArtifact(ctx context.Context, principal *auth.Principal, messageID string) (*domain.MessageArtifact, error) {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("message", nil)
		}
		return nil, apperrors.MapError(err)
	}
	conversation, err := s.loadAuthorized(ctx, principal, message.ConversationID)
	if err != nil {
		return nil, err
	}
	return s.enricher.Regenerate(ctx, conversation, message)
}

// PreviewGreeting proposes opening suggestions for a conversation with no
// persisted history. Nothing is stored.
func (s *ConversationService) PreviewGreeting(ctx context.Context, principal *auth.Principal, conversationID string) (*enrichment.Preview, error) {
	conversation, err := s.loadAuthorized(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}
	return s.enricher.PreviewGreeting(ctx, conversation)
}

// UpdateStatus transitions a conversation status via an explicit case
// update.
func (s *ConversationService) UpdateStatus(ctx context.Context, principal *auth.Principal, conversationID string, status domain.ConversationStatus) (*domain.Conversation, error) {
	switch status {
	case domain.ConversationStatusActive, domain.ConversationStatusOnHold,
		domain.ConversationStatusResolved, domain.ConversationStatusEscalated:
	default:
		return nil, apperrors.NewValidationError("unknown conversation status", map[string]any{"status": status})
	}

	conversation, err := s.loadAuthorized(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}
	if err := accesscontrol.RoleAtLeast(principal.Role, domain.RoleManager); err != nil {
		return nil, err
	}
	if err := s.conversations.UpdateStatus(ctx, conversation.ID, status); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	conversation.Status = status
	return conversation, nil
}

// AuthorizeAccess reports whether the caller may read the conversation,
// with the same scoping as the read endpoints. Used by the realtime layer
// before joining a room.
func (s *ConversationService) AuthorizeAccess(ctx context.Context, principal *auth.Principal, conversationID string) error {
	_, err := s.loadAuthorized(ctx, principal, conversationID)
	return err
}

// loadAuthorized fetches a conversation and applies the caller's scope.
// Unknown and out-of-scope conversations are indistinguishable: both come
// back NOT_FOUND.
func (s *ConversationService) loadAuthorized(ctx context.Context, principal *auth.Principal, conversationID string) (*domain.Conversation, error) {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("conversation", nil)
		}
		return nil, apperrors.MapError(err)
	}

	switch principal.Role {
	case domain.RoleSystemAdmin, domain.RoleAreaManager:
		return conversation, nil
	case domain.RoleManager:
		memberships, err := s.memberships.ListByUser(ctx, principal.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if accesscontrol.CanAccessGroup(principal.Role, memberships, conversation.GroupID) {
			return conversation, nil
		}
	default:
		if conversation.WorkerID == principal.ID {
			return conversation, nil
		}
	}
	return nil, apperrors.NewNotFound("conversation", nil)
}

func (s *ConversationService) authorizeGroup(ctx context.Context, principal *auth.Principal, groupID string) error {
	memberships, err := s.memberships.ListByUser(ctx, principal.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !accesscontrol.CanAccessGroup(principal.Role, memberships, groupID) {
		return apperrors.NewForbidden("no access to group")
	}
	return nil
}

func (s *ConversationService) buildMessage(conversationID, senderID string, input AppendMessageInput) *domain.Message {
	messageType := input.MessageType
	if messageType == "" {
		messageType = domain.MessageTypeText
		if input.ContentURL != nil && *input.ContentURL != "" {
			messageType = domain.MessageTypeImage
		}
	}
	return &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		MessageType:    messageType,
		Body:           strings.TrimSpace(input.Body),
		Language:       input.Language,
		ContentURL:     input.ContentURL,
	}
}

// afterAppend runs the post-persistence steps shared by create and
// append: inline enrichment (failure swallowed) and event emission.
func (s *ConversationService) afterAppend(ctx context.Context, principal *auth.Principal, conversation *domain.Conversation, message *domain.Message) {
	if s.inlineEnrichment && s.enricher != nil {
		artifact, err := s.enricher.EnrichMessage(ctx, conversation, message)
		if err != nil {
			s.logger.Warn("enrichment failed, message persisted without artifact",
				zap.String("message_id", message.ID), zap.Error(err))
		} else {
			message.Artifact = artifact
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:           events.EventNewMessage,
		ConversationID: conversation.ID,
		ActorID:        principal.ID,
		Payload:        events.NewMessagePayload{Message: *message},
	})
}

// advisoryCheck runs the compliance pre-check for manager-authored text.
// The verdict is logged and never blocks the send.
func (s *ConversationService) advisoryCheck(ctx context.Context, principal *auth.Principal, body string) {
	if s.compliance == nil || body == "" {
		return
	}
	if accesscontrol.RoleAtLeast(principal.Role, domain.RoleManager) != nil {
		return
	}
	result, err := s.compliance.Check(ctx, body)
	if err != nil {
		s.logger.Warn("compliance pre-check unavailable", zap.Error(err))
		return
	}
	if result.RiskLevel != compliance.RiskNone {
		s.logger.Warn("compliance pre-check flagged outbound text",
			zap.String("risk_level", string(result.RiskLevel)),
			zap.String("reason", result.Reason),
			zap.String("sender_id", principal.ID))
	}
}

func (s *ConversationService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("conversation_id", event.ConversationID),
			zap.Error(err))
	}
}
