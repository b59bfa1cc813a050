package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/casework-service/internal/domain"
)

// MessageRepository encapsulates message persistence. Messages are
// insert-only; the only mutable attachment is the artifact, handled by
// ArtifactRepository.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	ListRecentByConversation(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	HasWorkerMessage(ctx context.Context, conversationID, workerID string) (bool, error)
	WithTx(tx pgx.Tx) MessageRepository
}

type messageRepository struct {
	db Querier
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(db Querier) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) WithTx(tx pgx.Tx) MessageRepository {
	return &messageRepository{db: tx}
}

const messageColumns = `id, conversation_id, sender_id, message_type, body, language, content_url, created_at`

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	const query = `
        INSERT INTO messages (conversation_id, sender_id, message_type, body, language, content_url)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		message.ConversationID,
		message.SenderID,
		message.MessageType,
		message.Body,
		message.Language,
		message.ContentURL,
	).Scan(&message.ID, &message.CreatedAt)
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	const query = `SELECT ` + messageColumns + ` FROM messages WHERE id=$1`
	var message domain.Message
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.MessageType,
		&message.Body,
		&message.Language,
		&message.ContentURL,
		&message.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByConversation returns the full thread, oldest first.
func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	const query = `
        SELECT ` + messageColumns + `
        FROM messages
        WHERE conversation_id=$1
        ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListRecentByConversation returns up to limit newest messages, reordered
// oldest first for prompt assembly.
func (r *messageRepository) ListRecentByConversation(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
        SELECT ` + messageColumns + ` FROM (
            SELECT ` + messageColumns + `
            FROM messages
            WHERE conversation_id=$1
            ORDER BY created_at DESC, id DESC
            LIMIT $2
        ) recent
        ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) HasWorkerMessage(ctx context.Context, conversationID, workerID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM messages WHERE conversation_id=$1 AND sender_id=$2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, conversationID, workerID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var message domain.Message
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.MessageType,
			&message.Body,
			&message.Language,
			&message.ContentURL,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, message)
	}
	return result, rows.Err()
}
