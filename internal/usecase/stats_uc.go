package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// PlatformStats is the admin dashboard snapshot.
type PlatformStats struct {
	TotalUsers        int            `json:"total_users"`
	PurchasesByStatus map[string]int `json:"purchases_by_status"`
	ActiveByPackage   map[string]int `json:"active_by_package"`
	RevenueWeek       int64          `json:"revenue_week"`
	RevenueMonth      int64          `json:"revenue_month"`
	RevenueYear       int64          `json:"revenue_year"`
}

type StatsUseCase interface {
	Snapshot(ctx context.Context) (*PlatformStats, error)
}

type statsUC struct {
	users     repository.UserRepository
	purchases repository.PurchaseRepository
	attempts  repository.PaymentAttemptRepository
	log       *zerolog.Logger
}

func NewStatsUseCase(
	users repository.UserRepository,
	purchases repository.PurchaseRepository,
	attempts repository.PaymentAttemptRepository,
	logger *zerolog.Logger,
) *statsUC {
	l := logger.With().Str("component", "StatsUC").Logger()
	return &statsUC{users: users, purchases: purchases, attempts: attempts, log: &l}
}

func (uc *statsUC) Snapshot(ctx context.Context) (*PlatformStats, error) {
	s := &PlatformStats{}
	var err error

	if s.TotalUsers, err = uc.users.CountUsers(ctx, nil); err != nil {
		return nil, err
	}
	if s.PurchasesByStatus, err = uc.purchases.CountByStatus(ctx, nil); err != nil {
		return nil, err
	}
	if s.ActiveByPackage, err = uc.purchases.CountGrantingByPackage(ctx, nil, time.Now()); err != nil {
		return nil, err
	}

	for _, p := range []struct {
		period string
		dst    *int64
	}{
		{"week", &s.RevenueWeek},
		{"month", &s.RevenueMonth},
		{"year", &s.RevenueYear},
	} {
		if *p.dst, err = uc.attempts.SumCompletedAmountSince(ctx, nil, p.period); err != nil {
			return nil, err
		}
	}
	return s, nil
}
