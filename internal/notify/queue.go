package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/swap-notifier/internal/logging"
	"github.com/swap-notifier/internal/telegram"
)

// Sender is the transport the queue delivers through.
type Sender interface {
	Send(ctx context.Context, destination, text string) error
}

// ErrQueueStopped is returned for tasks that cannot complete because the
// queue has shut down.
var ErrQueueStopped = errors.New("delivery queue stopped")

// Config holds the queue's retry and cool-down settings
type Config struct {
	// Concurrency is the number of in-flight sends. The application-wide
	// default is 1: a single global lane keeps the process under the
	// transport's overall throughput ceiling, at the accepted cost of one
	// noisy destination delaying all others.
	Concurrency     int
	MaxRetries      int           // attempts before a send is failed
	RetryDelay      time.Duration // fixed delay between ordinary retries
	RequeueMargin   time.Duration // safety margin added to throttle requeues
	DefaultCooldown time.Duration // cool-down when throttling omits retry-after
	BufferSize      int
}

// DefaultConfig returns the queue configuration matching the transport's
// documented limits.
func DefaultConfig() Config {
	return Config{
		Concurrency:     1,
		MaxRetries:      3,
		RetryDelay:      time.Second,
		RequeueMargin:   100 * time.Millisecond,
		DefaultCooldown: 10 * time.Second,
		BufferSize:      256,
	}
}

// task is one pending delivery. attempts only counts genuine delivery
// failures; throttle requeues are free.
type task struct {
	destination string
	text        string
	attempts    int
	done        chan error
}

// Queue serializes outbound notification sends, consulting RateState before
// each attempt and requeuing throttled tasks with a deferred release time.
type Queue struct {
	sender Sender
	rate   *RateState
	cfg    Config
	logger *logging.Logger

	tasks   chan *task
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// NewQueue creates a delivery queue. The rate state must be shared with any
// other component that inspects cool-downs.
func NewQueue(sender Sender, rate *RateState, cfg Config, logger *logging.Logger) *Queue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.DefaultCooldown <= 0 {
		cfg.DefaultCooldown = 10 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Queue{
		sender: sender,
		rate:   rate,
		cfg:    cfg,
		logger: logger,
		tasks:  make(chan *task, cfg.BufferSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the delivery workers.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return fmt.Errorf("delivery queue already started")
	}
	q.started = true

	var wg sync.WaitGroup
	for i := 0; i < q.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.run(ctx)
		}()
	}
	go func() {
		wg.Wait()
		close(q.doneCh)
	}()

	return nil
}

// Stop shuts the queue down and waits for in-flight sends to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return
	}
	select {
	case <-q.stopCh:
	default:
		close(q.stopCh)
	}
	<-q.doneCh
}

// Enqueue submits a delivery and blocks until it settles: nil once the send
// succeeded, or the final error after retries are exhausted. Throttle
// requeues extend the wait but are never reported as failures.
func (q *Queue) Enqueue(ctx context.Context, destination, text string) error {
	t := &task{
		destination: destination,
		text:        text,
		done:        make(chan error, 1),
	}

	select {
	case q.tasks <- t:
	case <-q.stopCh:
		return ErrQueueStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the single-lane worker loop
func (q *Queue) run(ctx context.Context) {
	for {
		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		case t := <-q.tasks:
			q.process(ctx, t)
		}
	}
}

// process attempts one delivery
func (q *Queue) process(ctx context.Context, t *task) {
	// A cooling-down destination is a throttling event; the transport is
	// not contacted and the task goes back on the queue for later.
	if remaining := q.rate.Remaining(t.destination); remaining > 0 {
		q.logger.WithFields(map[string]interface{}{
			"destination": t.destination,
			"remaining":   remaining.String(),
		}).Debug("Destination cooling down, requeuing without send")
		q.requeue(t, remaining+q.cfg.RequeueMargin)
		return
	}

	err := q.sender.Send(ctx, t.destination, t.text)
	if err == nil {
		t.done <- nil
		return
	}

	var throttled *telegram.ThrottledError
	if errors.As(err, &throttled) {
		cooldown := throttled.RetryAfter
		if cooldown <= 0 {
			cooldown = q.cfg.DefaultCooldown
		}
		q.rate.SetCooldown(t.destination, cooldown)
		q.logger.WithFields(map[string]interface{}{
			"destination": t.destination,
			"cooldown":    cooldown.String(),
		}).Warn("Transport throttled destination, requeuing")
		// Not counted as a delivery failure
		q.requeue(t, cooldown+q.cfg.RequeueMargin)
		return
	}

	t.attempts++
	if t.attempts >= q.cfg.MaxRetries {
		q.logger.WithFields(map[string]interface{}{
			"destination": t.destination,
			"attempts":    t.attempts,
			"error":       err.Error(),
		}).Error("Delivery failed after max attempts")
		t.done <- err
		return
	}

	q.logger.WithFields(map[string]interface{}{
		"destination": t.destination,
		"attempt":     t.attempts,
		"error":       err.Error(),
	}).Warn("Delivery failed, retrying")
	q.requeue(t, q.cfg.RetryDelay)
}

// requeue reinserts a task after the given delay
func (q *Queue) requeue(t *task, delay time.Duration) {
	time.AfterFunc(delay, func() {
		select {
		case q.tasks <- t:
		case <-q.stopCh:
			t.done <- ErrQueueStopped
		}
	})
}
