package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  3,
	})

	calls := 0
	err := b.Retry(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  5,
	})

	calls := 0
	err := b.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("attempt %d failed", calls)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  3,
	})

	calls := 0
	failure := fmt.Errorf("always fails")
	err := b.Retry(context.Background(), func() error {
		calls++
		return failure
	})

	assert.Equal(t, failure, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancellation(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
		MaxAttempts:  5,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := b.Retry(ctx, func() error { return fmt.Errorf("fail") })
	assert.Equal(t, context.Canceled, err)
}

func TestCalculateDelay_ExponentialGrowth(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  5,
		Jitter:       false,
	})

	assert.Equal(t, 100*time.Millisecond, b.GetNextDelay(1))
	assert.Equal(t, 200*time.Millisecond, b.GetNextDelay(2))
	assert.Equal(t, 400*time.Millisecond, b.GetNextDelay(3))
}

func TestCalculateDelay_CapsAtMax(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: time.Second,
		MaxDelay:     3 * time.Second,
		Multiplier:   10.0,
		MaxAttempts:  5,
		Jitter:       false,
	})

	assert.Equal(t, 3*time.Second, b.GetNextDelay(4))
}

func TestCalculateDelay_JitterStaysInBounds(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		MaxAttempts:  5,
		Jitter:       true,
	})

	for i := 0; i < 50; i++ {
		delay := b.GetNextDelay(2)
		assert.GreaterOrEqual(t, delay, 150*time.Millisecond)
		assert.LessOrEqual(t, delay, 250*time.Millisecond)
	}
}

func TestDefaultBackoffConfig(t *testing.T) {
	cfg := DefaultBackoffConfig()
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 30*time.Second, cfg.MaxDelay)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.True(t, cfg.Jitter)
}
