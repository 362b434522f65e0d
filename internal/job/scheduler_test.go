package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swap-notifier/internal/logging"
)

func testScheduler() *Scheduler {
	return NewScheduler(logging.NewLogger(logging.LevelError, logging.FormatText))
}

func TestSchedulerRunsJobImmediatelyAndOnTicker(t *testing.T) {
	s := testScheduler()
	var runs int64
	require.NoError(t, s.Register("counter", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestSchedulerContinuesAfterJobError(t *testing.T) {
	s := testScheduler()
	var runs int64
	require.NoError(t, s.Register("flaky", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return errors.New("transient")
	}))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) >= 2
	}, time.Second, time.Millisecond)
}

func TestSchedulerStopHaltsJobs(t *testing.T) {
	s := testScheduler()
	var runs int64
	require.NoError(t, s.Register("counter", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	after := atomic.LoadInt64(&runs)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&runs))
}

func TestSchedulerRejectsRegistrationAfterStart(t *testing.T) {
	s := testScheduler()
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	err := s.Register("late", time.Second, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestSchedulerRejectsNonPositiveInterval(t *testing.T) {
	s := testScheduler()
	err := s.Register("bad", 0, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}
