package sweeper

import (
	"context"
	"time"

	"github.com/nkiryanov/postboard/internal/logger"
)

const defaultInterval = 10 * time.Minute

type refreshTokenRepo interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically removes expired refresh tokens
// Expired rows are rejected on refresh anyway, it only keeps the table small
type Sweeper struct {
	interval time.Duration
	repo     refreshTokenRepo
	logger   logger.Logger
	now      func() time.Time
}

func New(interval time.Duration, repo refreshTokenRepo, l logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Sweeper{
		interval: interval,
		repo:     repo,
		logger:   l,
		now:      time.Now,
	}
}

// Run sweeps on every tick until ctx done
// Returned channel closed when sweeper stopped
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	s.logger.Debug("Starting refresh token sweeper", "interval", s.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Sweeper stopped by context")
				return

			case <-ticker.C:
				deleted, err := s.repo.DeleteExpired(ctx, s.now())
				if err != nil {
					s.logger.Error("Failed to delete expired refresh tokens", "error", err)
					continue
				}
				if deleted > 0 {
					s.logger.Info("Expired refresh tokens deleted", "count", deleted)
				}
			}
		}
	}()

	return idleStopped
}
