package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one periodic scan cycle driven by the scheduler.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives the engines on fixed-period timers. A cycle that is
// still running when its next tick arrives is skipped, so cycles never
// overlap.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
	log  *slog.Logger
}

// New creates a scheduler.
func New() *Scheduler {
	log := slog.Default()
	cl := &cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		log: log,
	}
}

// Add registers a job; must be called before Start.
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start schedules all jobs and starts the timers. The given context is
// passed to every cycle.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		spec := fmt.Sprintf("@every %s", job.Interval)
		if _, err := s.cron.AddFunc(spec, func() {
			if ctx.Err() != nil {
				return
			}
			if err := job.Run(ctx); err != nil {
				s.log.Error("scan cycle failed", "job", job.Name, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
		s.log.Info("scheduled scan job", "job", job.Name, "interval", job.Interval)
	}
	s.cron.Start()
	return nil
}

// Stop halts the timers and waits for any running cycle to drain, bounded
// by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler drain interrupted: %w", ctx.Err())
	}
}

// cronLogger adapts slog to the cron logging interface.
type cronLogger struct {
	log *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
