// Package job runs named periodic tasks on independent tickers.
package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/swap-notifier/internal/logging"
)

// Task is one unit of periodic work. Errors are logged, never fatal; the
// schedule keeps firing regardless.
type Task func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	task     Task
}

// Scheduler drives registered jobs, one goroutine per job.
type Scheduler struct {
	jobs    []job
	logger  *logging.Logger
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(logger *logging.Logger) *Scheduler {
	return &Scheduler{
		logger: logger.WithField("component", "scheduler"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already started")
	}
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	s.jobs = append(s.jobs, job{name: name, interval: interval, task: task})
	return nil
}

// Start launches every registered job. Each job runs once immediately and
// then on its ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already started")
	}
	s.running = true

	var wg sync.WaitGroup
	for _, j := range s.jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			s.runJob(ctx, j)
		}(j)
	}
	go func() {
		wg.Wait()
		close(s.doneCh)
	}()

	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler started")
	return nil
}

// Stop signals all jobs to finish and waits for them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	s.logger.WithFields(map[string]interface{}{
		"job":      j.name,
		"interval": j.interval.String(),
	}).Info("Job scheduled")

	s.fire(ctx, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.fire(ctx, j)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, j job) {
	start := time.Now()
	if err := j.task(ctx); err != nil {
		s.logger.WithField("job", j.name).WithError(err).Error("Job run failed")
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"job":      j.name,
		"duration": time.Since(start).String(),
	}).Debug("Job run completed")
}
