// Package handlers turns Telegram updates into replies: greeting commands
// and mentions forwarded to the completion endpoint.
package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/gptrelay/internal/ai"
	"github.com/edgard/gptrelay/internal/config"
	"github.com/edgard/gptrelay/internal/telegram"
)

// HandlerDeps provides dependencies for Telegram update handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Settings  *config.Settings
	Identity  telegram.Identity
	Completer ai.Completer
}

// Handler processes one update. Implementations report failures to the
// user and the log themselves; nothing is returned to the caller.
type Handler interface {
	Handle(ctx context.Context, s telegram.Sender, update *models.Update)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, s telegram.Sender, update *models.Update)

// Handle calls f(ctx, s, update).
func (f HandlerFunc) Handle(ctx context.Context, s telegram.Sender, update *models.Update) {
	f(ctx, s, update)
}

// messageContent returns the text of msg and the entities that annotate it.
// Captions stand in for text on media messages.
func messageContent(msg *models.Message) (string, []models.MessageEntity) {
	if msg.Text != "" {
		return msg.Text, msg.Entities
	}
	return msg.Caption, msg.CaptionEntities
}
