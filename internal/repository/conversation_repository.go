package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/casework-service/internal/domain"
)

// ConversationRepository encapsulates conversation persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	GetActiveByGroupAndWorker(ctx context.Context, groupID, workerID string) (*domain.Conversation, error)
	ListAll(ctx context.Context) ([]domain.Conversation, error)
	ListByGroupIDs(ctx context.Context, groupIDs []string) ([]domain.Conversation, error)
	ListByWorker(ctx context.Context, workerID string) ([]domain.Conversation, error)
	UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus) error
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
	ReassignGroup(ctx context.Context, fromGroupID, toGroupID string) error
	WithTx(tx pgx.Tx) ConversationRepository
}

type conversationRepository struct {
	db Querier
}

// NewConversationRepository instantiates repository.
func NewConversationRepository(db Querier) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) WithTx(tx pgx.Tx) ConversationRepository {
	return &conversationRepository{db: tx}
}

const conversationColumns = `id, group_id, worker_id, subject, status, last_message_at, created_at, updated_at`

func (r *conversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	const query = `
        INSERT INTO conversations (group_id, worker_id, subject, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		conversation.GroupID,
		conversation.WorkerID,
		conversation.Subject,
		conversation.Status,
	).Scan(&conversation.ID, &conversation.CreatedAt, &conversation.UpdatedAt)
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	const query = `SELECT ` + conversationColumns + ` FROM conversations WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *conversationRepository) GetActiveByGroupAndWorker(ctx context.Context, groupID, workerID string) (*domain.Conversation, error) {
	const query = `
        SELECT ` + conversationColumns + `
        FROM conversations
        WHERE group_id=$1 AND worker_id=$2 AND status=$3
        ORDER BY created_at DESC
        LIMIT 1`
	var conversation domain.Conversation
	if err := r.db.QueryRow(ctx, query, groupID, workerID, domain.ConversationStatusActive).Scan(
		&conversation.ID,
		&conversation.GroupID,
		&conversation.WorkerID,
		&conversation.Subject,
		&conversation.Status,
		&conversation.LastMessageAt,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) ListAll(ctx context.Context) ([]domain.Conversation, error) {
	const query = `SELECT ` + conversationColumns + ` FROM conversations ORDER BY COALESCE(last_message_at, created_at) DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConversations(rows)
}

func (r *conversationRepository) ListByGroupIDs(ctx context.Context, groupIDs []string) ([]domain.Conversation, error) {
	if len(groupIDs) == 0 {
		return []domain.Conversation{}, nil
	}
	const query = `
        SELECT ` + conversationColumns + `
        FROM conversations
        WHERE group_id = ANY($1)
        ORDER BY COALESCE(last_message_at, created_at) DESC`
	rows, err := r.db.Query(ctx, query, groupIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConversations(rows)
}

func (r *conversationRepository) ListByWorker(ctx context.Context, workerID string) ([]domain.Conversation, error) {
	const query = `
        SELECT ` + conversationColumns + `
        FROM conversations
        WHERE worker_id=$1
        ORDER BY COALESCE(last_message_at, created_at) DESC`
	rows, err := r.db.Query(ctx, query, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConversations(rows)
}

func (r *conversationRepository) UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus) error {
	const query = `UPDATE conversations SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *conversationRepository) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE conversations SET last_message_at=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ReassignGroup moves every conversation of a group during a group-data
// migration. Outside that migration, group and worker are immutable.
func (r *conversationRepository) ReassignGroup(ctx context.Context, fromGroupID, toGroupID string) error {
	const query = `UPDATE conversations SET group_id=$2, updated_at=NOW() WHERE group_id=$1`
	_, err := r.db.Exec(ctx, query, fromGroupID, toGroupID)
	return err
}

func (r *conversationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Conversation, error) {
	var conversation domain.Conversation
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&conversation.ID,
		&conversation.GroupID,
		&conversation.WorkerID,
		&conversation.Subject,
		&conversation.Status,
		&conversation.LastMessageAt,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &conversation, nil
}

func scanConversations(rows pgx.Rows) ([]domain.Conversation, error) {
	var result []domain.Conversation
	for rows.Next() {
		var conversation domain.Conversation
		if err := rows.Scan(
			&conversation.ID,
			&conversation.GroupID,
			&conversation.WorkerID,
			&conversation.Subject,
			&conversation.Status,
			&conversation.LastMessageAt,
			&conversation.CreatedAt,
			&conversation.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, conversation)
	}
	return result, rows.Err()
}
