package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock records requested sleep durations instead of waiting.
type fakeClock struct {
	slept []time.Duration
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	return nil
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	clock := &fakeClock{}
	p := DefaultPolicy()
	p.Sleep = clock.Sleep

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clock.slept)
}

func TestDoRetriesWithDoublingDelays(t *testing.T) {
	clock := &fakeClock{}
	var notified []time.Duration

	p := DefaultPolicy()
	p.Sleep = clock.Sleep
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		notified = append(notified, delay)
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient failure")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls, "two transient failures then a success means exactly 3 attempts")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.slept)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, notified)
}

func TestDoExhaustsAttempts(t *testing.T) {
	clock := &fakeClock{}
	p := DefaultPolicy()
	p.Sleep = clock.Sleep

	wantErr := errors.New("persistent failure")
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls, "must stop after the third attempt")
	// No sleep after the final failure.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.slept)
}

func TestDoHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := DefaultPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	calls := 0
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("transient failure")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoRejectsInvalidPolicy(t *testing.T) {
	p := Policy{MaxAttempts: 0}
	err := p.Do(context.Background(), func(ctx context.Context) error { return nil })
	require.Error(t, err)
}
