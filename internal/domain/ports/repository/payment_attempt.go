package repository

import (
	"context"
	"time"

	"fitness-coaching-platform/internal/domain/model"
)

type PaymentAttemptRepository interface {
	Save(ctx context.Context, tx Tx, a *model.PaymentAttempt) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentAttempt, error)
	// FindLatestInitiated returns the newest payment.initiated row matching
	// the merchant oid and user, or ErrNotFound.
	FindLatestInitiated(ctx context.Context, tx Tx, merchantOid, userID string) (*model.PaymentAttempt, error)
	// Claim flips the row to status completed if and only if it is not
	// completed yet. Returns false when another caller already claimed it,
	// which makes replayed gateway callbacks structurally idempotent.
	Claim(ctx context.Context, tx Tx, id string) (bool, error)
	// AttachPurchase merges {"purchase_id": purchaseID} into the row payload.
	AttachPurchase(ctx context.Context, tx Tx, id, purchaseID string) error
	// SweepStaleInitiated marks initiated rows older than the cutoff as
	// status error so abandoned checkouts are visible to operators.
	SweepStaleInitiated(ctx context.Context, tx Tx, olderThan time.Time, limit int) (int, error)
	// SumCompletedAmountSince sums payload amounts of payment.completed rows
	// created within the period ("week" | "month" | "year").
	SumCompletedAmountSince(ctx context.Context, tx Tx, period string) (int64, error)
}
