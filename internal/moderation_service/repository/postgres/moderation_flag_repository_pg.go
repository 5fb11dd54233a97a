package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casafacile/golang_services/internal/moderation_service/domain"
)

// PgModerationFlagRepository implements domain.ModerationFlagRepository using pgx.
type PgModerationFlagRepository struct {
	db *pgxpool.Pool
}

// NewPgModerationFlagRepository creates a new repository instance.
func NewPgModerationFlagRepository(db *pgxpool.Pool) *PgModerationFlagRepository {
	return &PgModerationFlagRepository{db: db}
}

func (r *PgModerationFlagRepository) Create(ctx context.Context, flag *domain.ModerationFlag) error {
	query := `
		INSERT INTO moderation_flags (id, message_id, conversation_id, sender_id, reasons, flagged_at, reviewed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		flag.ID, flag.MessageID, flag.ConversationID, flag.SenderID,
		flag.Reasons, flag.FlaggedAt, flag.Reviewed)
	if err != nil {
		return fmt.Errorf("failed to insert moderation flag: %w", err)
	}
	return nil
}

func (r *PgModerationFlagRepository) ListPending(ctx context.Context, offset, limit int) ([]*domain.ModerationFlag, error) {
	query := `
		SELECT id, message_id, conversation_id, sender_id, reasons, flagged_at, reviewed
		FROM moderation_flags
		WHERE reviewed = FALSE
		ORDER BY flagged_at ASC
		OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending flags: %w", err)
	}
	defer rows.Close()

	var flags []*domain.ModerationFlag
	for rows.Next() {
		var f domain.ModerationFlag
		if err := rows.Scan(&f.ID, &f.MessageID, &f.ConversationID, &f.SenderID,
			&f.Reasons, &f.FlaggedAt, &f.Reviewed); err != nil {
			return nil, fmt.Errorf("failed to scan moderation flag: %w", err)
		}
		flags = append(flags, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flag rows: %w", err)
	}
	return flags, nil
}

func (r *PgModerationFlagRepository) MarkReviewed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE moderation_flags SET reviewed = TRUE WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark flag reviewed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
