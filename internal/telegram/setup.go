// Package telegram wraps the go-telegram/bot client: bot construction,
// identity lookup, command menu, webhook management and reply delivery.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	errs "github.com/edgard/gptrelay/internal/errors"
)

// Identity is the bot account as seen by the platform.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
}

// IdentityGetter is implemented by *bot.Bot.
type IdentityGetter interface {
	GetMe(ctx context.Context) (*models.User, error)
}

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errs.NewConfigurationError("telegram bot token cannot be empty", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, errs.NewNetworkError("failed to create telegram bot", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", tokenPrefix(token))
	return b, nil
}

// ResolveIdentity asks the platform who the bot is. A non-empty override
// replaces the reported username.
func ResolveIdentity(ctx context.Context, g IdentityGetter, override string) (Identity, error) {
	me, err := g.GetMe(ctx)
	if err != nil {
		return Identity{}, errs.NewNetworkError("failed to get bot info", err)
	}
	if me == nil {
		return Identity{}, errs.NewParseError("empty getMe response", nil)
	}

	id := Identity{ID: me.ID, Username: me.Username, FirstName: me.FirstName}
	if override = strings.TrimPrefix(strings.TrimSpace(override), "@"); override != "" {
		id.Username = override
	}
	return id, nil
}

// tokenPrefix keeps the bot id part of a token for logging.
func tokenPrefix(token string) string {
	if i := strings.IndexByte(token, ':'); i > 0 {
		return token[:i] + ":..."
	}
	if len(token) > 4 {
		return token[:4] + "..."
	}
	return "..."
}

func (i Identity) String() string {
	return fmt.Sprintf("%d/@%s", i.ID, i.Username)
}
