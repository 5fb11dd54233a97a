package app

import (
	"context"
	"log/slog"

	chatdomain "github.com/casafacile/golang_services/internal/chat_service/domain"
	"github.com/casafacile/golang_services/internal/moderation_service/domain"
)

// FlagProcessor turns tagged chat message events into moderation flags for
// the admin review queue. Clean messages are skipped.
type FlagProcessor struct {
	flagRepo domain.ModerationFlagRepository
	logger   *slog.Logger
}

// NewFlagProcessor creates a new FlagProcessor instance.
func NewFlagProcessor(flagRepo domain.ModerationFlagRepository, logger *slog.Logger) *FlagProcessor {
	return &FlagProcessor{
		flagRepo: flagRepo,
		logger:   logger,
	}
}

// ProcessMessage persists a flag when the event carries any filter reason,
// including the advisory contact_attempt tag that never blocks the message
// itself.
func (p *FlagProcessor) ProcessMessage(ctx context.Context, event chatdomain.MessageEvent) error {
	if len(event.BlockedReasons) == 0 {
		messagesSkippedCounter.Inc()
		return nil
	}

	reasons := make([]string, len(event.BlockedReasons))
	for i, r := range event.BlockedReasons {
		reasons[i] = string(r)
	}

	flag := domain.NewModerationFlag(event.MessageID, event.ConversationID, event.SenderID, reasons)

	if err := p.flagRepo.Create(ctx, flag); err != nil {
		p.logger.ErrorContext(ctx, "Failed to save moderation flag",
			"error", err, "message_id", event.MessageID, "conversation_id", event.ConversationID)
		return err
	}

	flagsCreatedCounter.WithLabelValues(reasons[0]).Inc()
	p.logger.InfoContext(ctx, "Moderation flag created",
		"flag_id", flag.ID, "message_id", event.MessageID, "reasons", reasons)
	return nil
}
