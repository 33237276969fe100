// Package scheduler runs the review and comment cycles on a fixed
// interval, strictly one at a time.
package scheduler

import (
	"context"
	"time"
)

// Cycle is one schedulable unit of work.
type Cycle interface {
	Run(ctx context.Context) error
}

// CycleFunc adapts a function to the Cycle interface.
type CycleFunc func(ctx context.Context) error

func (f CycleFunc) Run(ctx context.Context) error { return f(ctx) }

// Logger is the structured logging interface used by the scheduler.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) LogInfo(context.Context, string, map[string]interface{})    {}
func (nopLogger) LogWarning(context.Context, string, map[string]interface{}) {}

// Scheduler drives the cooperative single-threaded loop. Each tick runs
// Comment Cycle, then Review Cycle, then Comment Cycle again, so follow-up
// commands are picked up both before and promptly after a review pass.
// Cycles never overlap: a tick that overruns the interval simply delays
// the next tick rather than running concurrently with it.
type Scheduler struct {
	comments Cycle
	reviews  Cycle
	interval time.Duration
	logger   Logger
}

// New builds a Scheduler. Interval must be positive.
func New(comments, reviews Cycle, interval time.Duration, logger Logger) *Scheduler {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Scheduler{
		comments: comments,
		reviews:  reviews,
		interval: interval,
		logger:   logger,
	}
}

// Run executes ticks until the context is cancelled. The first tick runs
// immediately. Cycle errors are logged and never stop the loop; the only
// exit is context cancellation, whose cause is returned.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one full pass: comments, reviews, comments. Exposed so the
// one-shot CLI mode can run a single pass without the loop.
func (s *Scheduler) Tick(ctx context.Context) {
	start := time.Now()

	s.runCycle(ctx, "comments", s.comments)
	s.runCycle(ctx, "reviews", s.reviews)
	s.runCycle(ctx, "comments", s.comments)

	elapsed := time.Since(start)
	fields := map[string]interface{}{"elapsed": elapsed.String()}
	if elapsed > s.interval {
		s.logger.LogWarning(ctx, "Tick overran the scheduling interval", fields)
		return
	}
	s.logger.LogInfo(ctx, "Tick complete", fields)
}

func (s *Scheduler) runCycle(ctx context.Context, name string, cycle Cycle) {
	if ctx.Err() != nil || cycle == nil {
		return
	}
	if err := cycle.Run(ctx); err != nil && ctx.Err() == nil {
		s.logger.LogWarning(ctx, "Cycle finished with errors", map[string]interface{}{
			"cycle": name,
			"error": err.Error(),
		})
	}
}
