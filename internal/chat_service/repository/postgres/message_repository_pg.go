package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casafacile/golang_services/internal/chat_service/domain"
)

type PgMessageRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgMessageRepository(db *pgxpool.Pool, logger *slog.Logger) *PgMessageRepository {
	return &PgMessageRepository{db: db, logger: logger}
}

func reasonsToStrings(reasons []domain.BlockReason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}

func stringsToReasons(raw []string) []domain.BlockReason {
	if len(raw) == 0 {
		return nil
	}
	out := make([]domain.BlockReason, len(raw))
	for i, r := range raw {
		out[i] = domain.BlockReason(r)
	}
	return out
}

func (r *PgMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, original_content, is_blocked, blocked_reasons, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID,
		msg.Content, msg.OriginalContent, msg.IsBlocked,
		reasonsToStrings(msg.BlockedReasons), msg.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating message", "error", err, "message_id", msg.ID, "conversation_id", msg.ConversationID)
		return err
	}
	return nil
}

func (r *PgMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, original_content, is_blocked, blocked_reasons, created_at
		FROM messages
		WHERE id = $1
	`
	msg := &domain.Message{}
	var reasons []string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID,
		&msg.Content, &msg.OriginalContent, &msg.IsBlocked,
		&reasons, &msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting message by ID", "error", err, "message_id", id)
		return nil, err
	}
	msg.BlockedReasons = stringsToReasons(reasons)
	return msg, nil
}

func (r *PgMessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, offset, limit int) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, original_content, is_blocked, blocked_reasons, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing messages", "error", err, "conversation_id", conversationID)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg := &domain.Message{}
		var reasons []string
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID,
			&msg.Content, &msg.OriginalContent, &msg.IsBlocked,
			&reasons, &msg.CreatedAt,
		); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning message row", "error", err, "conversation_id", conversationID)
			return nil, err
		}
		msg.BlockedReasons = stringsToReasons(reasons)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating message rows", "error", err, "conversation_id", conversationID)
		return nil, err
	}
	return messages, nil
}
