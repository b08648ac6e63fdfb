package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/gptrelay/internal/ai"
	errs "github.com/edgard/gptrelay/internal/errors"
	"github.com/edgard/gptrelay/internal/logger"
	"github.com/edgard/gptrelay/internal/metrics"
	"github.com/edgard/gptrelay/internal/telegram"
	"github.com/edgard/gptrelay/internal/text"
)

// MentionHandler answers messages that address the bot by forwarding
// their text to the completion endpoint. It keeps no conversation state.
type MentionHandler struct {
	deps   HandlerDeps
	handle *text.Handle
}

var _ Handler = (*MentionHandler)(nil)

// NewMentionHandler creates a handler that responds to messages where the bot is mentioned.
func NewMentionHandler(deps HandlerDeps) *MentionHandler {
	return &MentionHandler{
		deps:   deps,
		handle: text.NewHandle(deps.Identity.Username),
	}
}

func (h *MentionHandler) Handle(ctx context.Context, s telegram.Sender, update *models.Update) {
	log := logger.FromContext(ctx, h.deps.Logger).With("handler", "mention")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.DebugContext(ctx, "Ignoring update without message or sender", "update_id", update.ID)
		return
	}
	if msg.From.IsBot {
		log.DebugContext(ctx, "Ignoring message from a bot", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
		return
	}
	if !h.Mentioned(msg) {
		log.DebugContext(ctx, "Bot not mentioned, skipping", "chat_id", msg.Chat.ID)
		return
	}

	log = log.With("chat_id", msg.Chat.ID, "message_id", msg.ID)
	prompt := h.Prompt(msg)
	if prompt == "" {
		log.InfoContext(ctx, "Mention received but prompt is empty")
		h.reply(ctx, log, s, msg, "empty_prompt", h.deps.Settings.EmptyPromptMessage)
		return
	}

	if err := telegram.Typing(ctx, s, msg); err != nil {
		log.DebugContext(ctx, "Typing indicator failed", "error", err)
	}

	log.InfoContext(ctx, "Forwarding mention to completion endpoint", "prompt_length", len(prompt))
	answer, err := h.deps.Completer.Complete(ctx, h.deps.Settings.Model,
		ai.SingleTurn(h.deps.Settings.SystemPrompt, prompt))
	if err != nil {
		log.ErrorContext(ctx, "Completion failed", "error", err, "error_code", errs.Code(err))
		h.reply(ctx, log, s, msg, "failure", h.deps.Settings.ErrorMessage)
		return
	}

	h.reply(ctx, log, s, msg, "completion", answer)
}

func (h *MentionHandler) reply(ctx context.Context, log *slog.Logger, s telegram.Sender, msg *models.Message, kind, content string) {
	parts, err := telegram.Reply(ctx, s, msg, content)
	metrics.ReplySent(kind, err)
	if err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "kind", kind, "error", err, "parts_sent", parts)
		return
	}
	log.DebugContext(ctx, "Sent reply", "kind", kind, "parts", parts)
}
