package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrier_SucceedsAfterFailures(t *testing.T) {
	r := New(WithMaxAttempts(4), WithBackoff(time.Millisecond, 2*time.Millisecond), WithJitter(0))

	var retries []int
	r.onRetry = func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) }

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRetrier_PermanentStops(t *testing.T) {
	r := New(WithMaxAttempts(5), WithBackoff(time.Millisecond, time.Millisecond))
	bad := errors.New("bad credentials")

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(bad)
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, bad, err)
	assert.False(t, IsPermanent(err))
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	r := New(WithMaxAttempts(2), WithBackoff(time.Millisecond, time.Millisecond))
	last := errors.New("still down")

	err := r.Do(context.Background(), func(context.Context) error { return last })
	assert.ErrorIs(t, err, last)
}

func TestRetrier_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(WithMaxAttempts(3), WithBackoff(time.Hour, time.Hour))
	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		return errors.New("down")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoWithData(t *testing.T) {
	r := New(WithBackoff(time.Millisecond, time.Millisecond))
	calls := 0
	v, err := DoWithData(context.Background(), r, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("once")
		}
		return "pong", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "pong", v)
}

func TestDelayCapped(t *testing.T) {
	r := New(WithBackoff(time.Second, 3*time.Second), WithJitter(0))
	assert.Equal(t, time.Second, r.delay(1))
	assert.Equal(t, 2*time.Second, r.delay(2))
	assert.Equal(t, 3*time.Second, r.delay(3))
	assert.Equal(t, 3*time.Second, r.delay(40))
}
