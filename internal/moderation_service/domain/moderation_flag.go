package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ModerationFlag is one review item for the admin panel: a chat message the
// content filter tagged (redacted categories or a circumvention attempt).
type ModerationFlag struct {
	ID             uuid.UUID `json:"id"`
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Reasons        []string  `json:"reasons"`
	FlaggedAt      time.Time `json:"flagged_at"`
	Reviewed       bool      `json:"reviewed"`
}

// NewModerationFlag creates a flag for a tagged message.
func NewModerationFlag(messageID, conversationID, senderID uuid.UUID, reasons []string) *ModerationFlag {
	return &ModerationFlag{
		ID:             uuid.New(),
		MessageID:      messageID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Reasons:        reasons,
		FlaggedAt:      time.Now().UTC(),
		Reviewed:       false,
	}
}

// ModerationFlagRepository defines the persistence interface for flags.
type ModerationFlagRepository interface {
	Create(ctx context.Context, flag *ModerationFlag) error
	// ListPending returns unreviewed flags, oldest first.
	ListPending(ctx context.Context, offset, limit int) ([]*ModerationFlag, error)
	MarkReviewed(ctx context.Context, id uuid.UUID) error
}
