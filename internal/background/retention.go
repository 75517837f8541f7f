package background

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/BradenHooton/loginhistory/internal/models"
	"github.com/BradenHooton/loginhistory/internal/services"
)

// DefaultSchedule runs the retention sweep twice a day
const DefaultSchedule = "@every 12h"

// sweepTimeout bounds a single scheduled sweep
const sweepTimeout = 5 * time.Minute

// Sweeper runs one retention sweep
type Sweeper interface {
	Run(ctx context.Context) (*services.SweepResult, error)
}

// Scheduler registers and clears the recurring retention sweep
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
}

// CronScheduler triggers the retention sweep on a cron schedule
type CronScheduler struct {
	sweeper    Sweeper
	cron       *cron.Cron
	schedule   string
	runOnStart bool
	logger     *slog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

var _ Scheduler = (*CronScheduler)(nil)

// NewCronScheduler creates a new CronScheduler. An empty schedule uses DefaultSchedule.
func NewCronScheduler(sweeper Sweeper, schedule string, runOnStart bool, logger *slog.Logger) *CronScheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &CronScheduler{
		sweeper:    sweeper,
		cron:       cron.New(),
		schedule:   schedule,
		runOnStart: runOnStart,
		logger:     logger,
	}
}

// Start registers the sweep and, when configured, runs the first sweep immediately.
// Scheduled sweeps stop when ctx is cancelled or Stop is called.
func (s *CronScheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		s.cancel()
		return fmt.Errorf("invalid retention schedule %q: %w", s.schedule, err)
	}

	if s.runOnStart {
		go s.runSweep()
	}

	s.cron.Start()
	s.logger.Info("retention scheduler started", "schedule", s.schedule, "jobs", len(s.cron.Entries()))
	return nil
}

// Stop clears the schedule and waits for a running sweep to finish
func (s *CronScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("retention scheduler stopped")
}

func (s *CronScheduler) runSweep() {
	ctx, cancel := context.WithTimeout(s.ctx, sweepTimeout)
	defer cancel()

	if _, err := s.sweeper.Run(ctx); err != nil {
		if errors.Is(err, models.ErrSweepInProgress) {
			return
		}
		s.logger.Error("scheduled retention sweep failed", "error", err)
	}
}
