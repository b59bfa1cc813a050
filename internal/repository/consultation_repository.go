package repository

import (
	"context"

	"github.com/spec-kit/casework-service/internal/domain"
)

// ConsultationRepository encapsulates consultation case persistence.
type ConsultationRepository interface {
	UpsertByConversation(ctx context.Context, consultation *domain.ConsultationCase) error
	GetByConversation(ctx context.Context, conversationID string) (*domain.ConsultationCase, error)
}

type consultationRepository struct {
	db Querier
}

// NewConsultationRepository instantiates repository.
func NewConsultationRepository(db Querier) ConsultationRepository {
	return &consultationRepository{db: db}
}

func (r *consultationRepository) UpsertByConversation(ctx context.Context, consultation *domain.ConsultationCase) error {
	const query = `
        INSERT INTO consultation_cases (conversation_id, category, tags, status)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (conversation_id) DO UPDATE
        SET category=EXCLUDED.category,
            tags=EXCLUDED.tags,
            status=EXCLUDED.status,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`
	tags := consultation.Tags
	if tags == nil {
		tags = []string{}
	}
	return r.db.QueryRow(ctx, query,
		consultation.ConversationID,
		consultation.Category,
		tags,
		consultation.Status,
	).Scan(&consultation.ID, &consultation.CreatedAt, &consultation.UpdatedAt)
}

func (r *consultationRepository) GetByConversation(ctx context.Context, conversationID string) (*domain.ConsultationCase, error) {
	const query = `
        SELECT id, conversation_id, category, tags, status, created_at, updated_at
        FROM consultation_cases WHERE conversation_id=$1`
	var consultation domain.ConsultationCase
	if err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&consultation.ID,
		&consultation.ConversationID,
		&consultation.Category,
		&consultation.Tags,
		&consultation.Status,
		&consultation.CreatedAt,
		&consultation.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &consultation, nil
}
