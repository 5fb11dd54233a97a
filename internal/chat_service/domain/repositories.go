package domain

import (
	"context"

	"github.com/google/uuid"
)

// MessageRepository defines the persistence interface for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// ListByConversation returns messages newest first.
	ListByConversation(ctx context.Context, conversationID uuid.UUID, offset, limit int) ([]*Message, error)
}
