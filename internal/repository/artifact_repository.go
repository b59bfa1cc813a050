package repository

import (
	"context"

	"github.com/spec-kit/casework-service/internal/domain"
)

// ArtifactRepository encapsulates enrichment artifact persistence.
// Upsert is keyed by message id so regeneration replaces, never duplicates.
type ArtifactRepository interface {
	Upsert(ctx context.Context, artifact *domain.MessageArtifact) error
	GetByMessage(ctx context.Context, messageID string) (*domain.MessageArtifact, error)
	ListByMessageIDs(ctx context.Context, messageIDs []string) ([]domain.MessageArtifact, error)
}

type artifactRepository struct {
	db Querier
}

// NewArtifactRepository instantiates repository.
func NewArtifactRepository(db Querier) ArtifactRepository {
	return &artifactRepository{db: db}
}

func (r *artifactRepository) Upsert(ctx context.Context, artifact *domain.MessageArtifact) error {
	const query = `
        INSERT INTO message_artifacts (message_id, translation, suggestions, extra)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (message_id) DO UPDATE
        SET translation=EXCLUDED.translation,
            suggestions=EXCLUDED.suggestions,
            extra=EXCLUDED.extra,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`
	suggestions := artifact.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return r.db.QueryRow(ctx, query,
		artifact.MessageID,
		artifact.Translation,
		suggestions,
		artifact.Extra,
	).Scan(&artifact.ID, &artifact.CreatedAt, &artifact.UpdatedAt)
}

func (r *artifactRepository) GetByMessage(ctx context.Context, messageID string) (*domain.MessageArtifact, error) {
	const query = `
        SELECT id, message_id, translation, suggestions, extra, created_at, updated_at
        FROM message_artifacts WHERE message_id=$1`
	var artifact domain.MessageArtifact
	if err := r.db.QueryRow(ctx, query, messageID).Scan(
		&artifact.ID,
		&artifact.MessageID,
		&artifact.Translation,
		&artifact.Suggestions,
		&artifact.Extra,
		&artifact.CreatedAt,
		&artifact.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (r *artifactRepository) ListByMessageIDs(ctx context.Context, messageIDs []string) ([]domain.MessageArtifact, error) {
	if len(messageIDs) == 0 {
		return []domain.MessageArtifact{}, nil
	}
	const query = `
        SELECT id, message_id, translation, suggestions, extra, created_at, updated_at
        FROM message_artifacts WHERE message_id = ANY($1)`
	rows, err := r.db.Query(ctx, query, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MessageArtifact
	for rows.Next() {
		var artifact domain.MessageArtifact
		if err := rows.Scan(
			&artifact.ID,
			&artifact.MessageID,
			&artifact.Translation,
			&artifact.Suggestions,
			&artifact.Extra,
			&artifact.CreatedAt,
			&artifact.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, artifact)
	}
	return result, rows.Err()
}
