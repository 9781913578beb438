package repository

import (
	"context"
	"time"

	"fitness-coaching-platform/internal/domain/model"
)

type PurchaseRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PackagePurchase) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PackagePurchase, error)
	// FindGranting returns the access-granting purchase with the latest
	// expiry for the user, or ErrNotFound.
	FindGranting(ctx context.Context, tx Tx, userID string, now time.Time) (*model.PackagePurchase, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.PackagePurchase, error)
	// ExpireValidByUser transitions every still-valid active/pending row of
	// the user to expired with cancelled_at set, returning how many rows
	// changed. Called inside the supersession transaction.
	ExpireValidByUser(ctx context.Context, tx Tx, userID string, now time.Time) (int, error)
	// AcquireUserLock serializes per-user ledger mutations for the duration
	// of the surrounding transaction.
	AcquireUserLock(ctx context.Context, tx Tx, userID string) error

	// Worker sweeps.
	FinishExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
	StartDue(ctx context.Context, tx Tx, now time.Time) (int, error)

	// Stats.
	CountByStatus(ctx context.Context, tx Tx) (map[string]int, error)
	CountGrantingByPackage(ctx context.Context, tx Tx, now time.Time) (map[string]int, error)
}
