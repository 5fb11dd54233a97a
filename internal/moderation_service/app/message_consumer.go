package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	chatdomain "github.com/casafacile/golang_services/internal/chat_service/domain"
	"github.com/casafacile/golang_services/internal/platform/messagebroker"
)

// MessageConsumer consumes persisted chat message events from NATS and
// forwards them to the FlagProcessor.
type MessageConsumer struct {
	natsClient *messagebroker.NatsClient
	processor  *FlagProcessor
	logger     *slog.Logger
}

// NewMessageConsumer creates a new MessageConsumer instance.
func NewMessageConsumer(natsClient *messagebroker.NatsClient, processor *FlagProcessor, logger *slog.Logger) *MessageConsumer {
	return &MessageConsumer{
		natsClient: natsClient,
		processor:  processor,
		logger:     logger,
	}
}

// StartConsuming queue-subscribes to the conversation message wildcard and
// processes events until the context is cancelled. The queue group lets
// multiple moderation workers share the stream without duplicate flags.
func (c *MessageConsumer) StartConsuming(ctx context.Context, queueGroup string) error {
	subject := chatdomain.MessageSubjectWildcard

	handler := func(msg *nats.Msg) {
		natsMessagesReceivedCounter.WithLabelValues(subject).Inc()

		var event chatdomain.MessageEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logger.ErrorContext(ctx, "Failed to deserialize chat message event",
				"error", err, "subject", msg.Subject)
			return
		}

		if err := c.processor.ProcessMessage(ctx, event); err != nil {
			// Logged by the processor; nothing to retry here, the flag will
			// be missing until an admin backfill.
			return
		}
	}

	sub, err := c.natsClient.SubscribeWithQueue(subject, queueGroup, handler)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Moderation consumer subscribed", "subject", subject, "queue_group", queueGroup)

	<-ctx.Done()
	c.logger.InfoContext(ctx, "Moderation consumer stopping", "reason", ctx.Err())
	if err := sub.Drain(); err != nil {
		c.logger.WarnContext(ctx, "Failed to drain moderation subscription", "error", err)
	}
	return nil
}
