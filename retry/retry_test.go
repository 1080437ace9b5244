package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecoverableError(t *testing.T) {
	err := NewRecoverableError(errors.New("test error"))
	assert.True(t, IsRecoverable(err))
	assert.False(t, IsRecoverable(errors.New("test error")))
	assert.False(t, IsRecoverable(nil))
	assert.True(t, IsRecoverable(errors.New("connection refused")))
	assert.False(t, IsRecoverable(NewNonRecoverableError(errors.New("bad input"))))
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		return NewRecoverableError(errors.New("test error"))
	}, WithMaxRetries(3), WithBaseWait(time.Millisecond*20))
	assert.Error(t, err)
	assert.Equal(t, "test error", err.Error())
	assert.Equal(t, 4, count)
}

func TestRetryZeroMaxRetries(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		return NewRecoverableError(errors.New("test error"))
	}, WithMaxRetries(0), WithBaseWait(time.Millisecond*20))
	assert.Error(t, err)
	assert.Equal(t, "test error", err.Error())
	assert.Equal(t, 1, count) // Should still try once even with 0 retries
}

func TestRetryStopsOnNonRecoverable(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		return NewNonRecoverableError(errors.New("bad input"))
	}, WithMaxRetries(5), WithBaseWait(time.Millisecond))
	assert.Error(t, err)
	assert.Equal(t, 1, count)
}

func TestBackoffGrowthAndCap(t *testing.T) {
	policy := Policy{
		BaseWait:   time.Second,
		MaxWait:    60 * time.Second,
		Multiplier: 2.0,
	}
	assert.Equal(t, time.Second, policy.Backoff(0))
	assert.Equal(t, 2*time.Second, policy.Backoff(1))
	assert.Equal(t, 4*time.Second, policy.Backoff(2))

	// Non-decreasing and capped at MaxWait.
	prev := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		wait := policy.Backoff(attempt)
		assert.GreaterOrEqual(t, wait, prev)
		assert.LessOrEqual(t, wait, policy.MaxWait)
		prev = wait
	}
	assert.Equal(t, 60*time.Second, policy.Backoff(10))
}
