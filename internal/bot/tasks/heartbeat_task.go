package tasks

import (
	"context"
	"log/slog"
)

// newHeartbeatTask logs that the relay is alive together with the
// dispatcher counters.
func newHeartbeatTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", Heartbeat)
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if deps.Stats == nil {
			log.InfoContext(ctx, "Relay alive")
			return nil
		}
		log.InfoContext(ctx, "Relay alive", slog.Any("dispatcher", deps.Stats()))
		return nil
	}
}
