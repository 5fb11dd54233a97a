package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/casafacile/golang_services/internal/chat_service/domain"
)

// EventPublisher is the slice of the message broker this service needs.
// *messagebroker.NatsClient satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// MessageService runs chat messages through the content filter, persists them
// and publishes the persisted (sanitized) message for realtime fan-out.
type MessageService struct {
	messageRepo domain.MessageRepository
	publisher   EventPublisher
	logger      *slog.Logger
}

func NewMessageService(messageRepo domain.MessageRepository, publisher EventPublisher, logger *slog.Logger) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		publisher:   publisher,
		logger:      logger.With("component", "message_service"),
	}
}

// SendMessage filters, persists and fans out one chat message.
// The filter result is returned alongside the message so the caller can show
// the sender what was hidden and why.
func (s *MessageService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*domain.Message, domain.ContentFilterResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.ContentFilterResult{}, domain.ErrEmptyContent
	}

	filtered := domain.FilterMessageContent(content)
	msg := domain.NewMessage(conversationID, senderID, filtered)

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist chat message",
			"error", err, "conversation_id", conversationID, "sender_id", senderID)
		return nil, domain.ContentFilterResult{}, fmt.Errorf("failed to persist message: %w", err)
	}

	outcome := "clean"
	if filtered.IsBlocked {
		outcome = "redacted"
	}
	messagesProcessedCounter.WithLabelValues(outcome).Inc()
	for _, reason := range filtered.BlockedReasons {
		blockedReasonsCounter.WithLabelValues(string(reason)).Inc()
	}

	// Fan-out is best effort: the message is already durable, and the other
	// participant will see it on the next history load even if the realtime
	// publish fails.
	event := domain.MessageEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		IsBlocked:      msg.IsBlocked,
		BlockedReasons: msg.BlockedReasons,
		CreatedAt:      msg.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal message event", "error", err, "message_id", msg.ID)
		return msg, filtered, nil
	}
	if err := s.publisher.Publish(ctx, domain.MessageSubject(msg.ConversationID), payload); err != nil {
		fanoutPublishErrorsCounter.Inc()
		s.logger.ErrorContext(ctx, "Failed to publish message event",
			"error", err, "message_id", msg.ID, "conversation_id", msg.ConversationID)
	}

	return msg, filtered, nil
}

// History returns a page of a conversation's messages, newest first.
func (s *MessageService) History(ctx context.Context, conversationID uuid.UUID, offset, limit int) ([]*domain.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.messageRepo.ListByConversation(ctx, conversationID, offset, limit)
}
