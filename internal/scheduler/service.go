// Package scheduler runs recurring maintenance jobs on cron-style
// schedules.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/buildgrid/siteops/backend/internal/errorreporting"
	"github.com/buildgrid/siteops/backend/internal/logger"
)

// Task is one maintenance job body. Errors are logged and reported but do
// not stop the schedule.
type Task func(ctx context.Context) error

type job struct {
	name    string
	expr    string
	task    Task
	nextRun time.Time
	lastRun time.Time
}

// Service manages scheduled maintenance jobs.
type Service struct {
	mu   sync.Mutex
	jobs []*job
	tick time.Duration
	stop chan struct{}
	once sync.Once

	// test seam
	now func() time.Time
}

// NewService creates a scheduler that checks for due jobs every tick.
// Zero means one minute.
func NewService(tick time.Duration) *Service {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Service{
		tick: tick,
		stop: make(chan struct{}),
		now:  time.Now,
	}
}

// Register adds a job on a cron-style schedule (@every 5m, @hourly,
// @daily, ...). The first run is one full interval after registration.
func (s *Service) Register(name, expr string, task Task) error {
	if err := ValidateCronExpression(expr); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := ParseCronExpression(expr, s.now())
	if err != nil {
		return err
	}
	s.jobs = append(s.jobs, &job{name: name, expr: expr, task: task, nextRun: next})
	return nil
}

// Start begins the scheduler loop and blocks until ctx is done or Stop is
// called.
func (s *Service) Start(ctx context.Context) {
	logger.Get().Info("Starting maintenance scheduler", "tick", s.tick.String(), "jobs", len(s.jobs))
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Get().Info("Scheduler stopped by context")
			return
		case <-s.stop:
			logger.Get().Info("Scheduler stopped by signal")
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// Stop gracefully stops the scheduler.
func (s *Service) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// runDue executes every job whose next run time has passed and advances
// its schedule.
func (s *Service) runDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if !j.nextRun.After(now) {
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.execute(ctx, j, now)
	}
}

func (s *Service) execute(ctx context.Context, j *job, now time.Time) {
	logger.InfoContext(ctx, "Executing maintenance job", "job", j.name)

	if err := j.task(ctx); err != nil {
		logger.ErrorContext(ctx, "Maintenance job failed", "job", j.name, "error", err)
		errorreporting.CaptureErrorWithContext(err, map[string]string{"job": j.name}, nil)
	}

	next, err := ParseCronExpression(j.expr, now)
	if err != nil {
		// Validated at registration, so this should not happen; park the
		// job rather than rerunning it every tick.
		logger.ErrorContext(ctx, "Failed to reschedule maintenance job", "job", j.name, "error", err)
		next = now.Add(24 * time.Hour)
	}

	s.mu.Lock()
	j.lastRun = now
	j.nextRun = next
	s.mu.Unlock()

	logger.InfoContext(ctx, "Maintenance job finished", "job", j.name, "next_run", next.Format(time.RFC3339))
}

// JobStatus describes one registered job for introspection.
type JobStatus struct {
	Name    string    `json:"name"`
	Expr    string    `json:"expr"`
	LastRun time.Time `json:"last_run"`
	NextRun time.Time `json:"next_run"`
}

// Jobs returns the current schedule state.
func (s *Service) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobStatus{Name: j.name, Expr: j.expr, LastRun: j.lastRun, NextRun: j.nextRun})
	}
	return out
}
