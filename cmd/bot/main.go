// Package main contains the entrypoint for the Telegram relay bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/gptrelay/internal/ai"
	"github.com/edgard/gptrelay/internal/bot"
	"github.com/edgard/gptrelay/internal/bot/handlers"
	"github.com/edgard/gptrelay/internal/bot/tasks"
	"github.com/edgard/gptrelay/internal/config"
	errs "github.com/edgard/gptrelay/internal/errors"
	"github.com/edgard/gptrelay/internal/logger"
	"github.com/edgard/gptrelay/internal/metrics"
	"github.com/edgard/gptrelay/internal/server"
	"github.com/edgard/gptrelay/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires config, logger, completion client, Telegram bot, HTTP server
// and scheduler, then blocks until shutdown. It returns the process exit code.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err, "error_code", errs.Code(err))
		return 1
	}

	log := logger.NewLogger(cfg.LogLevel, cfg.LogFormat == "json")
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	metrics.MustRegister(nil)

	completer, err := ai.NewClient(ai.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.APIBase,
		Timeout: cfg.Timeout,
	}, log)
	if err != nil {
		log.Error("Failed to initialize completion client", "error", err)
		return 1
	}

	// The default handler is bound after GetMe, once the bot's identity is known.
	var dispatcher *bot.Dispatcher
	botOpts := []tgbot.Option{
		tgbot.WithNotAsyncHandlers(),
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			dispatcher.Handle(ctx, b, update)
		}),
	}
	if cfg.WebhookSecret != "" {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(cfg.WebhookSecret))
	}
	tg, err := telegram.NewTelegramBot(cfg.BotToken, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	identity, err := telegram.ResolveIdentity(ctx, tg, cfg.Username)
	if err != nil {
		log.Error("Failed to get bot info", "error", err, "error_code", errs.Code(err))
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", identity.ID, "bot_username", identity.Username)

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Settings:  cfg,
		Identity:  identity,
		Completer: completer,
	}
	dispatcher = bot.NewDispatcher(hDeps, cfg.MaxConcurrentUpdates)

	if err := telegram.RegisterCommands(ctx, tg, log, handlers.MenuCommands(handlers.RegisterAllCommands(hDeps))); err != nil {
		log.Warn("Failed to register bot commands", "error", err)
	}

	if err := telegram.PrepareUpdates(ctx, tg, log, telegram.UpdateSource{
		WebhookURL:         cfg.WebhookURL,
		WebhookSecret:      cfg.WebhookSecret,
		DropPendingUpdates: cfg.DropPendingUpdates,
	}); err != nil {
		log.Error("Failed to prepare update delivery", "error", err, "error_code", errs.Code(err))
		return 1
	}

	opts := bot.Options{Webhook: cfg.UseWebhook()}
	if cfg.HTTPListenAddr != "" {
		routerOpts := server.Options{}
		if cfg.UseWebhook() {
			routerOpts.Webhook = tg.WebhookHandler()
			routerOpts.WebhookPath = server.WebhookPath(cfg.WebhookURL)
		}
		opts.Server = server.New(cfg.HTTPListenAddr, server.NewRouter(routerOpts), log)
	}

	if cfg.HeartbeatEnabled() {
		taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
			Logger: log,
			Stats:  func() slog.LogValuer { return dispatcher.Stats() },
		})
		opts.Scheduler, err = bot.NewScheduler(log, map[string]string{tasks.Heartbeat: cfg.HeartbeatSchedule}, taskMap)
		if err != nil {
			log.Error("Failed to create scheduler", "error", err)
			return 1
		}
	}

	app, err := bot.NewBot(log, tg, dispatcher, opts)
	if err != nil {
		log.Error("Failed to create bot", "error", err)
		return 1
	}

	log.Info("Starting bot...", "model", cfg.Model, "api_base", cfg.APIBase)
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
