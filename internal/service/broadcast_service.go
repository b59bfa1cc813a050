package service

import (
	"context"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spec-kit/casework-service/internal/accesscontrol"
	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/domain"
	"github.com/spec-kit/casework-service/internal/repository"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

// BroadcastService dispatches one message to many recipients as isolated
// per-recipient sends. It is the only operation issuing multiple
// independent top-level writes concurrently.
type BroadcastService struct {
	conversations *ConversationService
	memberships   repository.MembershipRepository
	logger        *zap.Logger
}

// NewBroadcastService constructs the service.
func NewBroadcastService(conversations *ConversationService, memberships repository.MembershipRepository, logger *zap.Logger) *BroadcastService {
	return &BroadcastService{
		conversations: conversations,
		memberships:   memberships,
		logger:        logger,
	}
}

// BroadcastInput describes a bulk send.
type BroadcastInput struct {
	GroupID      string
	Body         string
	Language     string
	RecipientIDs []string
}

// RecipientResult reports one recipient's outcome.
type RecipientResult struct {
	RecipientID    string `json:"recipient_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BroadcastResult aggregates the bulk send.
type BroadcastResult struct {
	Sent    int               `json:"sent"`
	Failed  int               `json:"failed"`
	Total   int               `json:"total"`
	Results []RecipientResult `json:"results"`
}

// Broadcast validates the whole recipient set up front; any ineligible id
// rejects the request with zero sends. Past validation, each recipient is
// handled independently and one failure never rolls back another's
// committed send.
func (s *BroadcastService) Broadcast(ctx context.Context, principal *auth.Principal, input BroadcastInput) (*BroadcastResult, error) {
	if input.GroupID == "" || input.Body == "" {
		return nil, apperrors.NewValidationError("groupId and body required", nil)
	}
	if len(input.RecipientIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one recipient required", nil)
	}
	if err := accesscontrol.RoleAtLeast(principal.Role, domain.RoleManager); err != nil {
		return nil, err
	}

	senderMemberships, err := s.memberships.ListByUser(ctx, principal.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !accesscontrol.CanAccessGroup(principal.Role, senderMemberships, input.GroupID) {
		return nil, apperrors.NewForbidden("no access to group")
	}

	activeMembers, err := s.memberships.ListActiveMembersOfGroup(ctx, input.GroupID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	eligible := lo.SliceToMap(activeMembers, func(u domain.User) (string, struct{}) { return u.ID, struct{}{} })

	recipients := lo.Uniq(input.RecipientIDs)
	ineligible := lo.Filter(recipients, func(id string, _ int) bool {
		_, ok := eligible[id]
		return !ok
	})
	if len(ineligible) > 0 {
		return nil, apperrors.NewValidationError("recipients not active members of group",
			map[string]any{"ineligible": ineligible})
	}

	result := &BroadcastResult{Total: len(recipients), Results: make([]RecipientResult, len(recipients))}

	var wg sync.WaitGroup
	for i, recipientID := range recipients {
		wg.Add(1)
		go func(i int, recipientID string) {
			defer wg.Done()
			result.Results[i] = s.sendToRecipient(ctx, principal, input, recipientID)
		}(i, recipientID)
	}
	wg.Wait()

	for _, r := range result.Results {
		if r.Error == "" {
			result.Sent++
		} else {
			result.Failed++
		}
	}
	s.logger.Info("broadcast completed",
		zap.String("group_id", input.GroupID),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *BroadcastService) sendToRecipient(ctx context.Context, principal *auth.Principal, input BroadcastInput, recipientID string) RecipientResult {
	conversation, err := s.conversations.EnsureActiveConversation(ctx, input.GroupID, recipientID)
	if err != nil {
		s.logger.Warn("broadcast recipient failed",
			zap.String("recipient_id", recipientID), zap.Error(err))
		return RecipientResult{RecipientID: recipientID, Error: err.Error()}
	}

	message, err := s.conversations.AppendMessage(ctx, principal, conversation.ID, AppendMessageInput{
		Body:        input.Body,
		Language:    input.Language,
		MessageType: domain.MessageTypeText,
	})
	if err != nil {
		s.logger.Warn("broadcast recipient failed",
			zap.String("recipient_id", recipientID), zap.Error(err))
		return RecipientResult{RecipientID: recipientID, ConversationID: conversation.ID, Error: err.Error()}
	}
	return RecipientResult{RecipientID: recipientID, ConversationID: conversation.ID, MessageID: message.ID}
}
