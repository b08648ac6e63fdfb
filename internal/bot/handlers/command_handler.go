package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/gptrelay/internal/config"
	"github.com/edgard/gptrelay/internal/logger"
	"github.com/edgard/gptrelay/internal/metrics"
	"github.com/edgard/gptrelay/internal/telegram"
)

// NewGreetingHandler returns the handler shared by /start and /help.
func NewGreetingHandler(deps HandlerDeps, command string) Handler {
	return greetingHandler{deps: deps, command: command}
}

type greetingHandler struct {
	deps    HandlerDeps
	command string
}

func (h greetingHandler) Handle(ctx context.Context, s telegram.Sender, update *models.Update) {
	log := logger.FromContext(ctx, h.deps.Logger).With("handler", h.command)

	if update.Message == nil {
		log.WarnContext(ctx, "Greeting handler received update without message", "update_id", update.ID)
		return
	}
	msg := update.Message

	log.InfoContext(ctx, "Handling command", "command", "/"+h.command, "chat_id", msg.Chat.ID)

	_, err := telegram.Reply(ctx, s, msg, Greeting(h.deps.Settings, h.deps.Identity.Username))
	metrics.ReplySent("greeting", err)
	if err != nil {
		log.ErrorContext(ctx, "Failed to send greeting", "error", err, "chat_id", msg.Chat.ID)
		return
	}
	log.DebugContext(ctx, "Sent greeting", "chat_id", msg.Chat.ID)
}

// Greeting renders the configured greeting, replacing the @botname
// placeholder with the bot's handle when the username is known.
func Greeting(s *config.Settings, username string) string {
	greeting := s.Greeting
	if greeting == "" {
		greeting = config.DefaultGreeting(s.Model)
	}
	if username != "" {
		greeting = strings.ReplaceAll(greeting, config.BotnamePlaceholder, "@"+username)
	}
	return greeting
}
