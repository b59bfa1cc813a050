package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/domain"
	"github.com/spec-kit/casework-service/internal/repository"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

// ConsultationService maintains the one case per conversation and its
// audited tag mutations.
type ConsultationService struct {
	consultations repository.ConsultationRepository
	audits        repository.AuditRepository
	conversations *ConversationService
	enricher      Enricher
	logger        *zap.Logger
}

// ConsultationDependencies bundles collaborators for the service.
type ConsultationDependencies struct {
	ConsultationRepo repository.ConsultationRepository
	AuditRepo        repository.AuditRepository
	Conversations    *ConversationService
	Enricher         Enricher
	Logger           *zap.Logger
}

// NewConsultationService constructs the service.
func NewConsultationService(deps ConsultationDependencies) *ConsultationService {
	return &ConsultationService{
		consultations: deps.ConsultationRepo,
		audits:        deps.AuditRepo,
		conversations: deps.Conversations,
		enricher:      deps.Enricher,
		logger:        deps.Logger,
	}
}

// CaseUpdateInput describes a case upsert.
type CaseUpdateInput struct {
	Category     string
	Tags         []string
	Status       domain.CaseStatus
	AIOriginated bool
}

// GetCase returns the consultation case for a conversation within the
// caller's scope.
func (s *ConsultationService) GetCase(ctx context.Context, principal *auth.Principal, conversationID string) (*domain.ConsultationCase, error) {
	if _, err := s.conversations.loadAuthorized(ctx, principal, conversationID); err != nil {
		return nil, err
	}
	consultation, err := s.consultations.GetByConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("consultation case", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return consultation, nil
}

// UpsertCase creates or updates the conversation's case and records every
// tag mutation in the append-only change log.
func (s *ConsultationService) UpsertCase(ctx context.Context, principal *auth.Principal, conversationID string, input CaseUpdateInput) (*domain.ConsultationCase, error) {
	if _, err := s.conversations.loadAuthorized(ctx, principal, conversationID); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.CaseStatusOpen
	}

	var previousTags []string
	existing, err := s.consultations.GetByConversation(ctx, conversationID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if existing != nil {
		previousTags = existing.Tags
	}

	consultation := &domain.ConsultationCase{
		ConversationID: conversationID,
		Category:       input.Category,
		Tags:           lo.Uniq(input.Tags),
		Status:         status,
	}
	if err := s.consultations.UpsertByConversation(ctx, consultation); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	s.auditTagChanges(ctx, principal, consultation, previousTags, consultation.Tags, input.AIOriginated)
	return consultation, nil
}

// GenerateTags invokes the pipeline in tagging mode and returns suggested
// tags without committing them; committing is a separate human-invoked
// update.
func (s *ConsultationService) GenerateTags(ctx context.Context, principal *auth.Principal, conversationID string) ([]string, error) {
	conversation, err := s.conversations.loadAuthorized(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}
	return s.enricher.GenerateTags(ctx, conversation)
}

// RecordSuggestionUsage appends an audit entry when a manager takes up a
// reply suggestion.
func (s *ConsultationService) RecordSuggestionUsage(ctx context.Context, principal *auth.Principal, messageID, suggestion string, position int) error {
	if messageID == "" || suggestion == "" {
		return apperrors.NewValidationError("messageId and suggestion required", nil)
	}
	entry := &domain.SuggestionUsageLog{
		MessageID:  messageID,
		UserID:     principal.ID,
		Suggestion: suggestion,
		Position:   position,
	}
	if err := s.audits.CreateSuggestionUsage(ctx, entry); err != nil {
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

// ListTagChanges returns the audit trail for a conversation.
func (s *ConsultationService) ListTagChanges(ctx context.Context, principal *auth.Principal, conversationID string, limit int) ([]domain.TagChangeLog, error) {
	if _, err := s.conversations.loadAuthorized(ctx, principal, conversationID); err != nil {
		return nil, err
	}
	result, err := s.audits.ListTagChangesByConversation(ctx, conversationID, limit)
	return result, apperrors.MapError(err)
}

func (s *ConsultationService) auditTagChanges(ctx context.Context, principal *auth.Principal, consultation *domain.ConsultationCase, previous, next []string, aiOriginated bool) {
	added, removed := lo.Difference(next, previous)
	for _, tag := range added {
		tag := tag
		s.writeTagChange(ctx, principal, consultation, domain.TagChangeActionAdd, nil, &tag, aiOriginated)
	}
	for _, tag := range removed {
		tag := tag
		s.writeTagChange(ctx, principal, consultation, domain.TagChangeActionRemove, &tag, nil, aiOriginated)
	}
}

func (s *ConsultationService) writeTagChange(ctx context.Context, principal *auth.Principal, consultation *domain.ConsultationCase, action domain.TagChangeAction, previous, next *string, aiOriginated bool) {
	entry := &domain.TagChangeLog{
		CaseID:         &consultation.ID,
		ConversationID: &consultation.ConversationID,
		ActorID:        principal.ID,
		Action:         action,
		Field:          "tags",
		Previous:       previous,
		Next:           next,
		AIOriginated:   aiOriginated,
	}
	if err := s.audits.CreateTagChange(ctx, entry); err != nil {
		s.logger.Error("failed to write tag change log",
			zap.String("conversation_id", consultation.ConversationID), zap.Error(err))
	}
}
