// Package scheduler runs a periodic job on a fixed interval until its
// context is cancelled.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is one unit of scheduled work. The time argument is the wall
// clock of the tick that triggered it, pinned to the configured zone.
type Job func(ctx context.Context, now time.Time) error

// Runner invokes a job every interval. A failed run is logged and the
// ticker keeps going; one bad tick must not stop the schedule.
type Runner struct {
	name     string
	interval time.Duration
	job      Job
	loc      *time.Location
	logger   zerolog.Logger
}

func NewRunner(name string, interval time.Duration, loc *time.Location, job Job, logger zerolog.Logger) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	return &Runner{
		name:     name,
		interval: interval,
		job:      job,
		loc:      loc,
		logger:   logger.With().Str("job", name).Logger(),
	}
}

// Start launches the run loop in its own goroutine and returns
// immediately. The loop exits when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *Runner) run(ctx context.Context) {
	r.logger.Info().Dur("interval", r.interval).Msg("scheduler started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("scheduler stopped")
			return
		case t := <-ticker.C:
			r.RunOnce(ctx, t)
		}
	}
}

// RunOnce executes the job for the given instant. It is also called
// directly by the manual trigger endpoint.
func (r *Runner) RunOnce(ctx context.Context, t time.Time) {
	now := t.In(r.loc)
	if err := r.job(ctx, now); err != nil {
		r.logger.Error().Err(err).Time("tick", now).Msg("scheduled run failed")
		return
	}
	r.logger.Debug().Time("tick", now).Msg("scheduled run completed")
}
