package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swap-notifier/internal/logging"
)

func testBreaker(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(&Config{
		Name:             "test",
		MaxFailures:      maxFailures,
		FailureThreshold: 0.5,
		Timeout:          timeout,
		HalfOpenMaxCalls: 2,
		Logger:           logging.NewLogger(logging.LevelError, logging.FormatText),
	})
}

func TestCircuitBreakerStaysClosed(t *testing.T) {
	cb := testBreaker(3, time.Minute)

	for i := 0; i < 10; i++ {
		err := cb.Execute(context.Background(), func() error { return nil })
		require.NoError(t, err)
	}

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerOpensOnConsecutiveFailures(t *testing.T) {
	cb := testBreaker(3, time.Minute)
	failure := errors.New("upstream down")

	for i := 0; i < 3; i++ {
		err := cb.Execute(context.Background(), func() error { return failure })
		assert.Equal(t, failure, err)
	}

	assert.Equal(t, StateOpen, cb.GetState())

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := testBreaker(2, 10*time.Millisecond)
	failure := errors.New("upstream down")

	for i := 0; i < 2; i++ {
		cb.Execute(context.Background(), func() error { return failure })
	}
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(15 * time.Millisecond)

	// Probe calls succeed, the circuit closes again
	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func() error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := testBreaker(2, 10*time.Millisecond)
	failure := errors.New("upstream down")

	for i := 0; i < 2; i++ {
		cb.Execute(context.Background(), func() error { return failure })
	}
	time.Sleep(15 * time.Millisecond)

	cb.Execute(context.Background(), func() error { return failure })

	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreakerManualReset(t *testing.T) {
	cb := testBreaker(1, time.Minute)
	cb.Execute(context.Background(), func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()

	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
}
