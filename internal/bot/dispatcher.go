package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/gptrelay/internal/bot/handlers"
	"github.com/edgard/gptrelay/internal/logger"
	"github.com/edgard/gptrelay/internal/metrics"
	"github.com/edgard/gptrelay/internal/telegram"
)

// Routes an update can take.
const (
	RouteCommand   = "command"
	RouteMention   = "mention"
	RouteUnhandled = "unhandled"
)

// Dispatcher hands every update to its own task, bounded by a concurrency
// limit, and routes it to the command or mention handler.
type Dispatcher struct {
	logger   *slog.Logger
	username string
	commands map[string]handlers.RegisteredCommand
	mention  handlers.Handler

	tasks errgroup.Group
	stats dispatchCounters
}

type dispatchCounters struct {
	received  atomic.Uint64
	commands  atomic.Uint64
	text      atomic.Uint64
	unhandled atomic.Uint64
	panics    atomic.Uint64
	inFlight  atomic.Int64
}

// DispatchStats is a snapshot of the dispatcher counters. Text counts
// messages handed to the mention handler, which may still ignore them.
type DispatchStats struct {
	Received  uint64
	Commands  uint64
	Text      uint64
	Unhandled uint64
	Panics    uint64
	InFlight  int64
}

// LogValue implements slog.LogValuer.
func (s DispatchStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("received", s.Received),
		slog.Uint64("commands", s.Commands),
		slog.Uint64("text", s.Text),
		slog.Uint64("unhandled", s.Unhandled),
		slog.Uint64("panics", s.Panics),
		slog.Int64("in_flight", s.InFlight),
	)
}

// NewDispatcher builds the routing table from deps. maxConcurrent bounds
// the number of updates handled at once; zero means no bound.
func NewDispatcher(deps handlers.HandlerDeps, maxConcurrent int) *Dispatcher {
	d := &Dispatcher{
		logger:   deps.Logger.With("component", "dispatcher"),
		username: deps.Identity.Username,
		commands: handlers.RegisterAllCommands(deps),
		mention:  handlers.NewMentionHandler(deps),
	}
	if maxConcurrent > 0 {
		d.tasks.SetLimit(maxConcurrent)
	}
	return d
}

// Handle starts a task for update and returns. It blocks only while the
// concurrency limit is reached. Tasks outlive ctx cancellation so replies
// already in progress are delivered; use Wait to drain them.
func (d *Dispatcher) Handle(ctx context.Context, s telegram.Sender, update *models.Update) {
	if update == nil {
		return
	}
	d.stats.received.Add(1)

	route, h := d.route(update)
	metrics.UpdateRouted(route)
	if h == nil {
		d.stats.unhandled.Add(1)
		d.logger.DebugContext(ctx, "Unhandled update", "update_id", update.ID, "update_type", logger.UpdateType(update))
		return
	}

	taskCtx := context.WithoutCancel(ctx)
	d.tasks.Go(func() error {
		d.run(taskCtx, s, update, route, h)
		return nil
	})
}

func (d *Dispatcher) route(update *models.Update) (string, handlers.Handler) {
	msg := update.Message
	if msg == nil {
		return RouteUnhandled, nil
	}
	if name, ok := handlers.CommandName(msg, d.username); ok {
		if rc, found := d.commands[name]; found {
			d.stats.commands.Add(1)
			return RouteCommand, rc.Handler
		}
	}
	if msg.Text != "" || msg.Caption != "" {
		d.stats.text.Add(1)
		return RouteMention, d.mention
	}
	return RouteUnhandled, nil
}

func (d *Dispatcher) run(ctx context.Context, s telegram.Sender, update *models.Update, route string, h handlers.Handler) {
	log := d.logger.With("request_id", uuid.NewString(), "update_id", update.ID, "route", route)
	ctx = logger.WithContext(ctx, log)

	d.stats.inFlight.Add(1)
	metrics.UpdateStarted()
	defer func() {
		metrics.UpdateFinished()
		d.stats.inFlight.Add(-1)
		if r := recover(); r != nil {
			d.stats.panics.Add(1)
			log.ErrorContext(ctx, "Handler panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	h.Handle(ctx, s, update)
}

// Wait blocks until every started task has finished.
func (d *Dispatcher) Wait() {
	_ = d.tasks.Wait()
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Received:  d.stats.received.Load(),
		Commands:  d.stats.commands.Load(),
		Text:      d.stats.text.Load(),
		Unhandled: d.stats.unhandled.Load(),
		Panics:    d.stats.panics.Load(),
		InFlight:  d.stats.inFlight.Load(),
	}
}
