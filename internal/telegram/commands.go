package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	errs "github.com/edgard/gptrelay/internal/errors"
)

// CommandSetter is implemented by *bot.Bot.
type CommandSetter interface {
	SetMyCommands(ctx context.Context, params *bot.SetMyCommandsParams) (bool, error)
}

// RegisterCommands publishes the command menu shown by Telegram clients.
func RegisterCommands(ctx context.Context, c CommandSetter, logger *slog.Logger, commands []models.BotCommand) error {
	if len(commands) == 0 {
		return nil
	}

	ok, err := c.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands})
	if err != nil {
		return errs.NewNetworkError("failed to set bot commands", err)
	}
	if !ok {
		return errs.NewUpstreamError("telegram rejected bot commands", 0, nil)
	}

	logger.Info("Registered bot commands", "count", len(commands))
	return nil
}
