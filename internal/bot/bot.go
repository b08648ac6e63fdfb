// Package bot implements the relay lifecycle: receiving updates by long
// polling or webhook, dispatching them, and running the HTTP server and
// scheduler alongside.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// Receiver is implemented by *tgbot.Bot.
type Receiver interface {
	Start(ctx context.Context)
	StartWebhook(ctx context.Context)
	WebhookHandler() http.HandlerFunc
}

// HTTPServer runs until its context is cancelled.
type HTTPServer interface {
	Run(ctx context.Context) error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger     *slog.Logger
	receiver   Receiver
	dispatcher *Dispatcher
	scheduler  *Scheduler
	server     HTTPServer
	webhook    bool
}

// Options holds the optional components of a Bot.
type Options struct {
	// Scheduler runs periodic jobs when set.
	Scheduler *Scheduler
	// Server serves the HTTP surface when set. Required in webhook mode.
	Server HTTPServer
	// Webhook makes the bot consume updates posted to the server instead
	// of polling for them.
	Webhook bool
}

// NewBot creates a new instance of the bot with all required dependencies.
func NewBot(logger *slog.Logger, receiver Receiver, dispatcher *Dispatcher, opts Options) (*Bot, error) {
	if opts.Webhook && opts.Server == nil {
		return nil, errors.New("webhook mode requires an HTTP server")
	}
	return &Bot{
		logger:     logger.With("component", "bot_orchestrator"),
		receiver:   receiver,
		dispatcher: dispatcher,
		scheduler:  opts.Scheduler,
		server:     opts.Server,
		webhook:    opts.Webhook,
	}, nil
}

// Run starts the bot and all its components, handling graceful shutdown on
// context cancellation. In-flight updates are drained before it returns.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...", "webhook", b.webhook)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if b.webhook {
			b.logger.Info("Starting Telegram webhook consumer...")
			b.receiver.StartWebhook(gCtx)
		} else {
			b.logger.Info("Starting Telegram bot listener...")
			b.receiver.Start(gCtx)
		}
		b.logger.Info("Telegram update receiver stopped.")

		if gCtx.Err() == nil {
			return errors.New("telegram receiver stopped unexpectedly")
		}
		return nil
	})

	if b.server != nil {
		g.Go(func() error {
			return b.server.Run(gCtx)
		})
	}

	if b.scheduler != nil {
		g.Go(func() error {
			if err := b.scheduler.Start(gCtx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	b.logger.Info("Draining in-flight updates...", "in_flight", b.dispatcher.Stats().InFlight)
	b.dispatcher.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.", slog.Any("dispatcher", b.dispatcher.Stats()))
	return nil
}
