package reminders

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Diegogtz03/kofy-app/pkg/logger"
)

// sweepTimeout bounds one purge pass
const sweepTimeout = 30 * time.Second

// Sweeper periodically runs the expired-reminder purge. The sweep is advisory
// cleanup: skipping a cycle cannot corrupt state, only delay garbage
// collection of stale triggers.
type Sweeper struct {
	scheduler *Scheduler
	cron      *cron.Cron
	schedule  string
	logger    *logger.Logger
}

// NewSweeper creates a sweeper running on the given cron schedule
// (e.g. "@every 1h")
func NewSweeper(scheduler *Scheduler, schedule string, log *logger.Logger) *Sweeper {
	return &Sweeper{
		scheduler: scheduler,
		cron:      cron.New(),
		schedule:  schedule,
		logger:    log,
	}
}

// Start registers the purge job and starts the cron runner
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweep)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Reminder sweeper started")
	return nil
}

// Stop stops the cron runner, waiting for a running sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Reminder sweeper stopped")
}

// sweep runs one purge pass. Failures are logged and otherwise ignored.
func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.scheduler.PurgeExpired(ctx); err != nil {
		s.logger.WithError(err).Warn("Reminder purge sweep failed")
	}
}
