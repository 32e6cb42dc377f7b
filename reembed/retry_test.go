package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_FirstTry(t *testing.T) {
	attempts := 0
	got, err := RetryWithBackoff(context.Background(), nil, 3, time.Millisecond, func(ctx context.Context) (string, error) {
		attempts++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	got, err := RetryWithBackoff(context.Background(), nil, 5, time.Millisecond, func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("temporary")
		}
		return attempts, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestRetryWithBackoff_ReturnsLastError(t *testing.T) {
	attempts := 0
	last := errors.New("still down")
	_, err := RetryWithBackoff(context.Background(), nil, 3, time.Millisecond, func(ctx context.Context) (int, error) {
		attempts++
		if attempts == 3 {
			return 0, last
		}
		return 0, errors.New("down")
	})
	assert.Same(t, last, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := RetryWithBackoff(ctx, nil, 10, time.Millisecond, func(ctx context.Context) (int, error) {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return 0, errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_DeadlineDuringSleep(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := RetryWithBackoff(ctx, nil, 5, time.Second, func(ctx context.Context) (int, error) {
		return 0, errors.New("fail")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryWithBackoff_DelaysGrow(t *testing.T) {
	var stamps []time.Time
	_, err := RetryWithBackoff(context.Background(), nil, 4, 5*time.Millisecond, func(ctx context.Context) (int, error) {
		stamps = append(stamps, time.Now())
		if len(stamps) < 4 {
			return 0, errors.New("fail")
		}
		return 0, nil
	})
	require.NoError(t, err)
	require.Len(t, stamps, 4)

	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 5*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 10*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[3].Sub(stamps[2]), 20*time.Millisecond)
}

func TestRetryWithBackoff_InvalidAttempts(t *testing.T) {
	for _, n := range []int{0, -1} {
		called := false
		_, err := RetryWithBackoff(context.Background(), nil, n, time.Millisecond, func(ctx context.Context) (int, error) {
			called = true
			return 0, nil
		})
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.False(t, called)
	}
}
