package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/casework-service/internal/domain"
)

// GroupRepository encapsulates group persistence.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id string) (*domain.Group, error)
	ListByOrganization(ctx context.Context, organizationID string, includeDeleted bool) ([]domain.Group, error)
	SoftDelete(ctx context.Context, id, actorID string, at time.Time) error
	Restore(ctx context.Context, id string) error
	WithTx(tx pgx.Tx) GroupRepository
}

type groupRepository struct {
	db Querier
}

// NewGroupRepository instantiates repository.
func NewGroupRepository(db Querier) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) WithTx(tx pgx.Tx) GroupRepository {
	return &groupRepository{db: tx}
}

const groupColumns = `id, organization_id, name, description, locale, created_at, updated_at, deleted_at, deleted_by`

func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	const query = `
        INSERT INTO groups (organization_id, name, description, locale)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		group.OrganizationID,
		group.Name,
		group.Description,
		group.Locale,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	const query = `SELECT ` + groupColumns + ` FROM groups WHERE id=$1`
	var group domain.Group
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&group.ID,
		&group.OrganizationID,
		&group.Name,
		&group.Description,
		&group.Locale,
		&group.CreatedAt,
		&group.UpdatedAt,
		&group.DeletedAt,
		&group.DeletedBy,
	); err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) ListByOrganization(ctx context.Context, organizationID string, includeDeleted bool) ([]domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE organization_id=$1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Group
	for rows.Next() {
		var group domain.Group
		if err := rows.Scan(
			&group.ID,
			&group.OrganizationID,
			&group.Name,
			&group.Description,
			&group.Locale,
			&group.CreatedAt,
			&group.UpdatedAt,
			&group.DeletedAt,
			&group.DeletedBy,
		); err != nil {
			return nil, err
		}
		result = append(result, group)
	}
	return result, rows.Err()
}

func (r *groupRepository) SoftDelete(ctx context.Context, id, actorID string, at time.Time) error {
	const query = `UPDATE groups SET deleted_at=$1, deleted_by=$2, updated_at=NOW() WHERE id=$3 AND deleted_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, at, actorID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *groupRepository) Restore(ctx context.Context, id string) error {
	const query = `UPDATE groups SET deleted_at=NULL, deleted_by=NULL, updated_at=NOW() WHERE id=$1 AND deleted_at IS NOT NULL`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
