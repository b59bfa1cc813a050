package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/casework-service/internal/domain"
)

// AuditRepository holds the append-only audit tables.
type AuditRepository interface {
	CreateTagChange(ctx context.Context, entry *domain.TagChangeLog) error
	ListTagChangesByConversation(ctx context.Context, conversationID string, limit int) ([]domain.TagChangeLog, error)
	CreateSuggestionUsage(ctx context.Context, entry *domain.SuggestionUsageLog) error
	WithTx(tx pgx.Tx) AuditRepository
}

type auditRepository struct {
	db Querier
}

// NewAuditRepository instantiates repository.
func NewAuditRepository(db Querier) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) WithTx(tx pgx.Tx) AuditRepository {
	return &auditRepository{db: tx}
}

func (r *auditRepository) CreateTagChange(ctx context.Context, entry *domain.TagChangeLog) error {
	const query = `
        INSERT INTO tag_change_logs (case_id, conversation_id, actor_id, action, field, previous, next, ai_originated)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.CaseID,
		entry.ConversationID,
		entry.ActorID,
		entry.Action,
		entry.Field,
		entry.Previous,
		entry.Next,
		entry.AIOriginated,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListTagChangesByConversation(ctx context.Context, conversationID string, limit int) ([]domain.TagChangeLog, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, case_id, conversation_id, actor_id, action, field, previous, next, ai_originated, created_at
        FROM tag_change_logs
        WHERE conversation_id=$1
        ORDER BY created_at DESC
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TagChangeLog
	for rows.Next() {
		var entry domain.TagChangeLog
		if err := rows.Scan(
			&entry.ID,
			&entry.CaseID,
			&entry.ConversationID,
			&entry.ActorID,
			&entry.Action,
			&entry.Field,
			&entry.Previous,
			&entry.Next,
			&entry.AIOriginated,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *auditRepository) CreateSuggestionUsage(ctx context.Context, entry *domain.SuggestionUsageLog) error {
	const query = `
        INSERT INTO suggestion_usage_logs (message_id, user_id, suggestion, position)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.MessageID,
		entry.UserID,
		entry.Suggestion,
		entry.Position,
	).Scan(&entry.ID, &entry.CreatedAt)
}
