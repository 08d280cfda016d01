package utils

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(time.Second, 12)
	assert.Equal(t, time.Second, b.Next(2))
	assert.Equal(t, 2*time.Second, b.Next(2))
	assert.Equal(t, 4*time.Second, b.Next(2))
	assert.Equal(t, 8*time.Second, b.Next(2))
	assert.Equal(t, 12*time.Second, b.Next(2), "capped at 12x")
	assert.Equal(t, 12*time.Second, b.Next(2))

	b.Reset()
	assert.Equal(t, time.Second, b.Next(1.5))
	assert.Equal(t, 1500*time.Millisecond, b.Next(1.5))
}

func TestKeyTracker(t *testing.T) {
	kt := NewKeyTracker()
	assert.True(t, kt.Add("room-1"))
	assert.False(t, kt.Add("room-1"))
	assert.False(t, kt.Add(""))
	assert.True(t, kt.Add("room-2"))
	assert.Equal(t, 2, kt.Count())
}

func TestRetryWithDelay(t *testing.T) {
	calls := 0
	err := RetryWithDelay(context.Background(), 3, time.Millisecond, quietLogger(), func(attempt int) error {
		calls++
		if attempt < 2 {
			return errors.New("timeout")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	boom := errors.New("blocked")
	err = RetryWithDelay(context.Background(), 2, time.Millisecond, quietLogger(), func(int) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
}

func TestRetryWithDelayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithDelay(ctx, 3, time.Hour, quietLogger(), func(int) error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiterSpacing(t *testing.T) {
	rl := NewRateLimiter(20 * time.Millisecond)
	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	require.NoError(t, rl.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("loud").GetLevel())
}
