// Package directory serves membership and hierarchy lookups plus group
// lifecycle: create, soft delete, restore, and the audited group-data
// migration.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/casework-service/internal/accesscontrol"
	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/domain"
	"github.com/spec-kit/casework-service/internal/events"
	"github.com/spec-kit/casework-service/internal/persistence"
	"github.com/spec-kit/casework-service/internal/repository"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

// Service coordinates the organization → group → membership hierarchy.
type Service struct {
	organizations repository.OrganizationRepository
	groups        repository.GroupRepository
	memberships   repository.MembershipRepository
	users         repository.UserRepository
	conversations repository.ConversationRepository
	audits        repository.AuditRepository
	tx            persistence.TxRunner
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// Dependencies bundles repositories for the directory service.
type Dependencies struct {
	OrganizationRepo repository.OrganizationRepository
	GroupRepo        repository.GroupRepository
	MembershipRepo   repository.MembershipRepository
	UserRepo         repository.UserRepository
	ConversationRepo repository.ConversationRepository
	AuditRepo        repository.AuditRepository
	Tx               persistence.TxRunner
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewService constructs the directory service.
func NewService(deps Dependencies) *Service {
	return &Service{
		organizations: deps.OrganizationRepo,
		groups:        deps.GroupRepo,
		memberships:   deps.MembershipRepo,
		users:         deps.UserRepo,
		conversations: deps.ConversationRepo,
		audits:        deps.AuditRepo,
		tx:            deps.Tx,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// CreateOrganization creates a top-level organization.
func (s *Service) CreateOrganization(ctx context.Context, principal *auth.Principal, name string) (*domain.Organization, error) {
	if err := accesscontrol.EnsureRole(principal.Role, domain.RoleSystemAdmin); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	org := &domain.Organization{Name: name}
	if err := s.organizations.Create(ctx, org); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("organization name already taken", nil)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return org, nil
}

// GroupInput describes group creation payload.
type GroupInput struct {
	OrganizationID string
	Name           string
	Description    string
	Locale         string
}

// CreateGroup creates a group; names are unique per organization.
func (s *Service) CreateGroup(ctx context.Context, principal *auth.Principal, input GroupInput) (*domain.Group, error) {
	if err := accesscontrol.RoleAtLeast(principal.Role, domain.RoleAreaManager); err != nil {
		return nil, err
	}
	if input.OrganizationID == "" || input.Name == "" {
		return nil, apperrors.NewValidationError("organizationId and name required", nil)
	}
	if _, err := s.organizations.GetByID(ctx, input.OrganizationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", nil)
		}
		return nil, apperrors.MapError(err)
	}

	locale := input.Locale
	if locale == "" {
		locale = "en"
	}
	group := &domain.Group{
		OrganizationID: input.OrganizationID,
		Name:           input.Name,
		Description:    input.Description,
		Locale:         locale,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("group name already taken in organization", nil)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return group, nil
}

// ListGroups lists an organization's groups. Soft-deleted groups appear
// only when includeDeleted is set, which requires area-manager rank.
func (s *Service) ListGroups(ctx context.Context, principal *auth.Principal, organizationID string, includeDeleted bool) ([]domain.Group, error) {
	if includeDeleted {
		if err := accesscontrol.RoleAtLeast(principal.Role, domain.RoleAreaManager); err != nil {
			return nil, err
		}
	}
	result, err := s.groups.ListByOrganization(ctx, organizationID, includeDeleted)
	return result, apperrors.MapError(err)
}

// SoftDeleteGroup hides a group, preserving who deleted it and when.
func (s *Service) SoftDeleteGroup(ctx context.Context, principal *auth.Principal, groupID string) error {
	if err := accesscontrol.RoleAtLeast(principal.Role, domain.RoleAreaManager); err != nil {
		return err
	}
	if err := s.groups.SoftDelete(ctx, groupID, principal.ID, time.Now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("group", nil)
		}
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

// RestoreGroup brings a soft-deleted group back, clearing the delete
// provenance.
func (s *Service) RestoreGroup(ctx context.Context, principal *auth.Principal, groupID string) error {
	if err := accesscontrol.RoleAtLeast(principal.Role, domain.RoleAreaManager); err != nil {
		return err
	}
	if err := s.groups.Restore(ctx, groupID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("group", nil)
		}
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

// AddMembership enrolls a user in a group with an in-group role. The
// (group, user) pair is unique.
func (s *Service) AddMembership(ctx context.Context, principal *auth.Principal, groupID, userID string, role domain.GroupRole) (*domain.Membership, error) {
	if err := accesscontrol.RoleAtLeast(principal.Role, domain.RoleManager); err != nil {
		return nil, err
	}
	callerMemberships, err := s.memberships.ListByUser(ctx, principal.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !accesscontrol.CanAccessGroup(principal.Role, callerMemberships, groupID) {
		return nil, apperrors.NewForbidden("no access to group")
	}
	if role != domain.GroupRoleMember && role != domain.GroupRoleManager {
		return nil, apperrors.NewValidationError("unknown group role", map[string]any{"role": role})
	}

	membership := &domain.Membership{GroupID: groupID, UserID: userID, Role: role}
	if err := s.memberships.Create(ctx, membership); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("user already belongs to group", nil)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return membership, nil
}

// ListMembershipsForUser returns a user's memberships. Callers below
// manager rank only see their own.
func (s *Service) ListMembershipsForUser(ctx context.Context, principal *auth.Principal, userID string) ([]domain.Membership, error) {
	if userID != principal.ID {
		if err := accesscontrol.RoleAtLeast(principal.Role, domain.RoleManager); err != nil {
			return nil, err
		}
	}
	result, err := s.memberships.ListByUser(ctx, userID)
	return result, apperrors.MapError(err)
}

// MigrateGroupData moves a group's conversations and memberships to
// another group in one transaction, leaving an audit record. This is the
// only path on which a conversation's group ever changes.
func (s *Service) MigrateGroupData(ctx context.Context, principal *auth.Principal, fromGroupID, toGroupID string) error {
	if err := accesscontrol.EnsureRole(principal.Role, domain.RoleSystemAdmin); err != nil {
		return err
	}
	if fromGroupID == "" || toGroupID == "" || fromGroupID == toGroupID {
		return apperrors.NewValidationError("distinct fromGroupId and toGroupId required", nil)
	}
	for _, id := range []string{fromGroupID, toGroupID} {
		if _, err := s.groups.GetByID(ctx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("group", map[string]any{"group_id": id})
			}
			return apperrors.MapError(err)
		}
	}

	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.conversations.WithTx(tx).ReassignGroup(ctx, fromGroupID, toGroupID); err != nil {
			return err
		}
		if err := s.memberships.WithTx(tx).MoveToGroup(ctx, fromGroupID, toGroupID); err != nil {
			return err
		}
		entry := &domain.TagChangeLog{
			ActorID:  principal.ID,
			Action:   domain.TagChangeActionMigrate,
			Field:    "group_data_migration",
			Previous: &fromGroupID,
			Next:     &toGroupID,
		}
		return s.audits.WithTx(tx).CreateTagChange(ctx, entry)
	})
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}

	if s.dispatcher != nil {
		publishErr := s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventGroupMigrated,
			ActorID:   principal.ID,
			Timestamp: time.Now(),
			Payload:   events.GroupMigratedPayload{FromGroupID: fromGroupID, ToGroupID: toGroupID},
		})
		if publishErr != nil {
			s.logger.Warn("event handlers failed",
				zap.String("event_type", string(events.EventGroupMigrated)),
				zap.Error(publishErr))
		}
	}

	s.logger.Info("group data migrated",
		zap.String("from_group_id", fromGroupID),
		zap.String("to_group_id", toGroupID),
		zap.String("actor_id", principal.ID))
	return nil
}
