package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"

	errs "github.com/edgard/gptrelay/internal/errors"
)

// AllowedUpdates limits delivery to the update kinds the relay handles.
var AllowedUpdates = []string{"message"}

// WebhookManager is implemented by *bot.Bot.
type WebhookManager interface {
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)
	DeleteWebhook(ctx context.Context, params *bot.DeleteWebhookParams) (bool, error)
}

// UpdateSource describes how updates reach the bot.
type UpdateSource struct {
	WebhookURL         string
	WebhookSecret      string
	DropPendingUpdates bool
}

// PrepareUpdates points Telegram at the webhook URL, or removes any webhook
// so that long polling can receive updates.
func PrepareUpdates(ctx context.Context, m WebhookManager, logger *slog.Logger, src UpdateSource) error {
	if src.WebhookURL == "" {
		ok, err := m.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: src.DropPendingUpdates})
		if err != nil {
			return errs.NewNetworkError("failed to delete webhook", err)
		}
		if !ok {
			return errs.NewUpstreamError("telegram refused to delete webhook", 0, nil)
		}
		logger.Info("Using long polling", "drop_pending_updates", src.DropPendingUpdates)
		return nil
	}

	ok, err := m.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:                src.WebhookURL,
		SecretToken:        src.WebhookSecret,
		DropPendingUpdates: src.DropPendingUpdates,
		AllowedUpdates:     AllowedUpdates,
	})
	if err != nil {
		return errs.NewNetworkError("failed to set webhook", err)
	}
	if !ok {
		return errs.NewUpstreamError("telegram refused to set webhook", 0, nil)
	}

	logger.Info("Webhook registered", "url", src.WebhookURL, "secret", src.WebhookSecret != "",
		"drop_pending_updates", src.DropPendingUpdates)
	return nil
}
