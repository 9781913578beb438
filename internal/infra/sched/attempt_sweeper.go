package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/domain/ports/repository"
	"fitness-coaching-platform/internal/infra/redis"
)

const (
	sweepBatchSize = 200
	sweepLockKey   = "sched:attempt_sweep"
)

// AttemptSweeper marks checkout attempts that never reconciled as errors so
// they surface in operator reports. It never completes a payment on its own;
// money movement is only ever confirmed by the gateway redirect.
type AttemptSweeper struct {
	attempts repository.PaymentAttemptRepository
	locker   redis.Locker
	interval time.Duration
	staleTTL time.Duration
	log      *zerolog.Logger
}

func NewAttemptSweeper(attempts repository.PaymentAttemptRepository, locker redis.Locker, interval, staleTTL time.Duration, logger *zerolog.Logger) *AttemptSweeper {
	l := logger.With().Str("component", "AttemptSweeper").Logger()
	return &AttemptSweeper{attempts: attempts, locker: locker, interval: interval, staleTTL: staleTTL, log: &l}
}

// Run blocks until ctx is cancelled.
func (w *AttemptSweeper) Run(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Dur("stale_ttl", w.staleTTL).Msg("attempt sweeper started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("attempt sweeper stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *AttemptSweeper) tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
		if err != nil {
			return
		}
		defer func() { _ = w.locker.Unlock(ctx, sweepLockKey, token) }()
	}

	cutoff := time.Now().Add(-w.staleTTL)
	n, err := w.attempts.SweepStaleInitiated(ctx, nil, cutoff, sweepBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to sweep stale payment attempts")
		return
	}
	if n > 0 {
		w.log.Warn().Int("count", n).Time("cutoff", cutoff).Msg("stale payment attempts marked as error")
	}
}
