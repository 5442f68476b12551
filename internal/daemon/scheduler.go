package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/calfstretch/internal/logfields"
)

// Scheduler wraps gocron for the daemon's housekeeping jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	rollover  gocron.Job
}

// NewScheduler creates a scheduler on clock in loc.
func NewScheduler(clock clockwork.Clock, loc *time.Location) (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(loc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleDailyRollover runs rollover every day at hour:minute:second.
func (s *Scheduler) ScheduleDailyRollover(hour, minute, second uint, rollover func(context.Context)) (gocron.Job, error) {
	job, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, second))),
		gocron.NewTask(s.executeRollover, rollover),
		gocron.WithName("day-rollover"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rollover job: %w", err)
	}
	s.rollover = job
	return job, nil
}

// NextRollover returns when the rollover job runs next.
func (s *Scheduler) NextRollover() (time.Time, error) {
	if s.rollover == nil {
		return time.Time{}, fmt.Errorf("no rollover job scheduled")
	}
	return s.rollover.NextRun()
}

// executeRollover is called by gocron.
func (s *Scheduler) executeRollover(rollover func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	rollover(ctx)
	slog.Debug("Rollover job finished", logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}
