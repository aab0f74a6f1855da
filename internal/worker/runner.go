// Package worker runs periodic background tasks on fixed intervals.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// Runner fires a task immediately and then on every tick until the context
// is canceled. A tick that arrives while the previous run is still going is
// skipped, so slow runs never pile up.
type Runner struct {
	name     string
	interval time.Duration
	task     Task
	logger   *slog.Logger
	mu       sync.Mutex
}

func NewRunner(name string, interval time.Duration, task Task, logger *slog.Logger) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger,
	}
}

// Start blocks until ctx is canceled. Intended to be launched in its own
// goroutine.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("worker started",
		slog.String("task", r.name),
		slog.Duration("interval", r.interval),
	)

	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("worker stopped", slog.String("task", r.name))
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes the task if no other run is in flight and reports whether
// it ran.
func (r *Runner) RunOnce(ctx context.Context) bool {
	if !r.mu.TryLock() {
		r.logger.Warn("previous run still in progress, skipping tick",
			slog.String("task", r.name),
		)
		return false
	}
	defer r.mu.Unlock()

	if err := r.task(ctx); err != nil {
		r.logger.Error("task run failed",
			slog.String("task", r.name),
			slog.String("error", err.Error()),
		)
	}
	return true
}
