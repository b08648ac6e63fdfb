package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/gptrelay/internal/text"
)

const (
	sendMessageTimeout = 10 * time.Second
	chatActionTimeout  = 5 * time.Second
)

// Sender is the subset of the platform API used to answer users.
// *bot.Bot implements it; tests use fakes.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

var _ Sender = (*bot.Bot)(nil)

// Reply answers msg in its chat and forum thread, splitting content that
// exceeds the platform message limit. Every part is sent as a reply to msg.
// It returns the number of parts delivered.
func Reply(ctx context.Context, s Sender, msg *models.Message, content string) (int, error) {
	parts := text.Split(content, text.MaxMessageLength)
	for i, part := range parts {
		if err := sendPart(ctx, s, msg, part); err != nil {
			return i, fmt.Errorf("failed to send reply part %d/%d: %w", i+1, len(parts), err)
		}
	}
	return len(parts), nil
}

func sendPart(ctx context.Context, s Sender, msg *models.Message, part string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	_, err := s.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		MessageThreadID: threadID(msg),
		Text:            part,
		ReplyParameters: &models.ReplyParameters{
			MessageID:                msg.ID,
			AllowSendingWithoutReply: true,
		},
	})
	return err
}

// threadID is the forum topic of msg. Replies in ordinary supergroups also
// carry a thread id, which Telegram rejects when echoed back.
func threadID(msg *models.Message) int {
	if msg.IsTopicMessage {
		return msg.MessageThreadID
	}
	return 0
}

// Typing shows the typing indicator in the chat of msg.
func Typing(ctx context.Context, s Sender, msg *models.Message) error {
	actionCtx, cancel := context.WithTimeout(ctx, chatActionTimeout)
	defer cancel()

	_, err := s.SendChatAction(actionCtx, &bot.SendChatActionParams{
		ChatID:          msg.Chat.ID,
		MessageThreadID: threadID(msg),
		Action:          models.ChatActionTyping,
	})
	if err != nil {
		return fmt.Errorf("failed to send typing action: %w", err)
	}
	return nil
}
