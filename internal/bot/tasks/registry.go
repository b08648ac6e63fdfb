// Package tasks holds the jobs run by the bot scheduler.
package tasks

import (
	"context"
	"log/slog"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// TaskDeps provides dependencies for scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	// Stats snapshots the dispatcher counters.
	Stats func() slog.LogValuer
}

// Heartbeat is the name of the periodic liveness job.
const Heartbeat = "heartbeat"

// RegisterAllTasks initializes and returns a map of all registered scheduled
// tasks, keyed by the name used for their schedule.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	return map[string]ScheduledTaskFunc{
		Heartbeat: newHeartbeatTask(deps),
	}
}
