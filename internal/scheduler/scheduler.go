package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every interval.
type TickFunc func(ctx context.Context) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
}

// Scheduler drives periodic re-runs of an ingestion job. The first tick
// fires after StartupDelay (immediately when zero), then every Interval.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking tick until ctx is cancelled. A failing tick is logged
// and the schedule continues.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if err := sleepCtx(ctx, s.opts.StartupDelay); err != nil {
		return err
	}

	for {
		started := time.Now()
		s.logger.Info().Msg("executing scheduled run")
		if err := tick(ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled run failed")
		}

		next := s.opts.Interval - time.Since(started)
		if next < 0 {
			next = 0
		}
		s.logger.Debug().Dur("sleep", next).Msg("waiting for next run")
		if err := sleepCtx(ctx, next); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
