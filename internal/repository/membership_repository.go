package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/casework-service/internal/domain"
)

// MembershipRepository encapsulates membership persistence.
type MembershipRepository interface {
	Create(ctx context.Context, membership *domain.Membership) error
	ListByUser(ctx context.Context, userID string) ([]domain.Membership, error)
	ListByGroup(ctx context.Context, groupID string) ([]domain.Membership, error)
	ListActiveMembersOfGroup(ctx context.Context, groupID string) ([]domain.User, error)
	MoveToGroup(ctx context.Context, fromGroupID, toGroupID string) error
	WithTx(tx pgx.Tx) MembershipRepository
}

type membershipRepository struct {
	db Querier
}

// NewMembershipRepository instantiates repository.
func NewMembershipRepository(db Querier) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) WithTx(tx pgx.Tx) MembershipRepository {
	return &membershipRepository{db: tx}
}

func (r *membershipRepository) Create(ctx context.Context, membership *domain.Membership) error {
	const query = `
        INSERT INTO memberships (group_id, user_id, role)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		membership.GroupID,
		membership.UserID,
		membership.Role,
	).Scan(&membership.ID, &membership.CreatedAt)
}

func (r *membershipRepository) ListByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	const query = `SELECT id, group_id, user_id, role, created_at FROM memberships WHERE user_id=$1`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemberships(rows)
}

func (r *membershipRepository) ListByGroup(ctx context.Context, groupID string) ([]domain.Membership, error) {
	const query = `SELECT id, group_id, user_id, role, created_at FROM memberships WHERE group_id=$1`
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// ListActiveMembersOfGroup returns active users holding the MEMBER in-group
// role in the given group.
func (r *membershipRepository) ListActiveMembersOfGroup(ctx context.Context, groupID string) ([]domain.User, error) {
	const query = `
        SELECT u.id, u.name, u.email, u.role, u.locale, u.status, u.created_at, u.updated_at
        FROM memberships m
        JOIN users u ON u.id = m.user_id
        WHERE m.group_id=$1 AND m.role=$2 AND u.status=$3`
	rows, err := r.db.Query(ctx, query, groupID, domain.GroupRoleMember, domain.UserStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// MoveToGroup reassigns memberships during a group-data migration.
// Memberships the user already holds in the target group are dropped
// rather than duplicated.
func (r *membershipRepository) MoveToGroup(ctx context.Context, fromGroupID, toGroupID string) error {
	const dedupe = `
        DELETE FROM memberships m
        WHERE m.group_id=$1
          AND EXISTS (SELECT 1 FROM memberships t WHERE t.group_id=$2 AND t.user_id=m.user_id)`
	if _, err := r.db.Exec(ctx, dedupe, fromGroupID, toGroupID); err != nil {
		return err
	}
	const move = `UPDATE memberships SET group_id=$2 WHERE group_id=$1`
	_, err := r.db.Exec(ctx, move, fromGroupID, toGroupID)
	return err
}

func scanMemberships(rows pgx.Rows) ([]domain.Membership, error) {
	var result []domain.Membership
	for rows.Next() {
		var membership domain.Membership
		if err := rows.Scan(
			&membership.ID,
			&membership.GroupID,
			&membership.UserID,
			&membership.Role,
			&membership.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, membership)
	}
	return result, rows.Err()
}
