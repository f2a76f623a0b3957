package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type deleteExpiredFunc func(ctx context.Context, now time.Time) (int64, error)

func (f deleteExpiredFunc) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return f(ctx, now)
}

func TestSweeper(t *testing.T) {
	t.Run("sweep on every tick", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		var calls atomic.Int32
		repo := deleteExpiredFunc(func(ctx context.Context, now time.Time) (int64, error) {
			calls.Add(1)
			return 1, nil
		})

		ctx, cancel := context.WithCancel(t.Context())
		stopped := New(10*time.Millisecond, repo, nil).Run(ctx)

		require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

		cancel()
		<-stopped
	})

	t.Run("keep running on error", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		var calls atomic.Int32
		repo := deleteExpiredFunc(func(ctx context.Context, now time.Time) (int64, error) {
			calls.Add(1)
			return 0, errors.New("db is down")
		})

		ctx, cancel := context.WithCancel(t.Context())
		stopped := New(10*time.Millisecond, repo, nil).Run(ctx)

		require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

		cancel()
		<-stopped
	})

	t.Run("pass current time", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		got := make(chan time.Time, 1)
		repo := deleteExpiredFunc(func(ctx context.Context, now time.Time) (int64, error) {
			select {
			case got <- now:
			default:
			}
			return 0, nil
		})

		s := New(10*time.Millisecond, repo, nil)
		s.now = func() time.Time { return fixed }

		ctx, cancel := context.WithCancel(t.Context())
		stopped := s.Run(ctx)

		require.Equal(t, fixed, <-got)

		cancel()
		<-stopped
	})

	t.Run("default interval", func(t *testing.T) {
		s := New(0, nil, nil)

		require.Equal(t, defaultInterval, s.interval)
	})
}
