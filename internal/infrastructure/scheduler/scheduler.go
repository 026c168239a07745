// Package scheduler runs the periodic ledger jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Scheduler manages the cron jobs. Schedules include a seconds field.
// A job still running when its next slot comes up is skipped for that slot.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger zerolog.Logger
}

// New creates a Scheduler whose jobs receive ctx.
func New(ctx context.Context, logger zerolog.Logger) *Scheduler {
	l := logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{l}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:    ctx,
		logger: l,
	}
}

// Register adds job under name on spec.
func (s *Scheduler) Register(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, s.wrap(name, job)); err != nil {
		return fmt.Errorf("register %s job: %w", name, err)
	}
	s.logger.Info().Str("job", name).Str("schedule", spec).Msg("job registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop stops scheduling and waits for running jobs, up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		if s.ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := job(s.ctx); err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		s.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
