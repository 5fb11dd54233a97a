package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a persisted chat message. Content is the sanitized text the
// participants see; OriginalContent is what the sender typed, kept for the
// moderation trail.
type Message struct {
	ID              uuid.UUID     `json:"id"`
	ConversationID  uuid.UUID     `json:"conversation_id"`
	SenderID        uuid.UUID     `json:"sender_id"`
	Content         string        `json:"content"`
	OriginalContent string        `json:"-"`
	IsBlocked       bool          `json:"is_blocked"`
	BlockedReasons  []BlockReason `json:"blocked_reasons,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// NewMessage builds a Message from a filter result.
func NewMessage(conversationID, senderID uuid.UUID, filtered ContentFilterResult) *Message {
	return &Message{
		ID:              uuid.New(),
		ConversationID:  conversationID,
		SenderID:        senderID,
		Content:         filtered.SanitizedContent,
		OriginalContent: filtered.OriginalContent,
		IsBlocked:       filtered.IsBlocked,
		BlockedReasons:  filtered.BlockedReasons,
		CreatedAt:       time.Now().UTC(),
	}
}

// MessageEvent is the payload published on the conversation's NATS subject
// after a message is persisted. It carries only sanitized content: everything
// downstream of the filter (fan-out, notifications) sees the redacted text.
type MessageEvent struct {
	MessageID      uuid.UUID     `json:"message_id"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	SenderID       uuid.UUID     `json:"sender_id"`
	Content        string        `json:"content"`
	IsBlocked      bool          `json:"is_blocked"`
	BlockedReasons []BlockReason `json:"blocked_reasons,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// MessageSubject returns the NATS subject for a conversation's messages.
func MessageSubject(conversationID uuid.UUID) string {
	return "chat.conversation." + conversationID.String() + ".message"
}

// MessageSubjectWildcard subscribes across all conversations.
const MessageSubjectWildcard = "chat.conversation.*.message"
