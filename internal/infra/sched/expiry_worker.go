package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/infra/metrics"
	"fitness-coaching-platform/internal/infra/redis"
	"fitness-coaching-platform/internal/usecase"
)

const expiryLockKey = "sched:expiry"

// ExpiryWorker keeps the purchase ledger honest between requests: rows whose
// window closed become EXPIRED and scheduled rows whose window opened become
// ACTIVE. Access checks are time-based either way, so the worker only affects
// reporting and listings, never correctness.
type ExpiryWorker struct {
	subs     usecase.SubscriptionUseCase
	locker   redis.Locker
	interval time.Duration
	log      *zerolog.Logger
}

func NewExpiryWorker(subs usecase.SubscriptionUseCase, locker redis.Locker, interval time.Duration, logger *zerolog.Logger) *ExpiryWorker {
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{subs: subs, locker: locker, interval: interval, log: &l}
}

// Run blocks until ctx is cancelled.
func (w *ExpiryWorker) Run(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("expiry worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("expiry worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	// one instance per tick across the fleet
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, expiryLockKey, w.interval)
		if err != nil {
			return
		}
		defer func() { _ = w.locker.Unlock(ctx, expiryLockKey, token) }()
	}

	expired, err := w.subs.FinishExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to finish expired purchases")
	} else if expired > 0 {
		metrics.AddPurchasesExpired(expired)
		w.log.Info().Int("count", expired).Msg("purchases expired")
	}

	started, err := w.subs.StartDue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to start due purchases")
	} else if started > 0 {
		metrics.AddPurchasesStarted(started)
		w.log.Info().Int("count", started).Msg("scheduled purchases activated")
	}
}
