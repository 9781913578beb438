package model

import (
	"time"

	"fitness-coaching-platform/internal/domain"
)

type PurchaseStatus string

const (
	PurchaseStatusActive    PurchaseStatus = "active"
	PurchaseStatusPending   PurchaseStatus = "pending"   // scheduled start in the future
	PurchaseStatusExpired   PurchaseStatus = "expired"   // ran out or superseded by a newer purchase
	PurchaseStatusCancelled PurchaseStatus = "cancelled" // explicit trainer/admin cancel
)

// PackagePurchase is one ledger entry granting a user access for a bounded
// window. Rows are never deleted; supersession and cancellation only flip
// status and timestamps.
type PackagePurchase struct {
	ID          string // UUID
	UserID      string // UUID
	PackageID   string // UUID
	Status      PurchaseStatus
	PurchasedAt time.Time
	StartsAt    time.Time
	// ExpiresAt is computed once at creation from the package's duration and
	// never recomputed, so later catalog edits cannot shift existing windows.
	ExpiresAt   time.Time
	PaymentRef  *string // gateway merchant oid, nil for manual assignments
	CancelledAt *time.Time
}

// NewPackagePurchase builds a ledger entry starting at startsAt. A future
// start yields a PENDING row; otherwise the row is immediately ACTIVE.
// Expiry is whole-day calendar addition, no timezone normalization.
func NewPackagePurchase(id, userID string, pkg *Package, startsAt time.Time, paymentRef *string) (*PackagePurchase, error) {
	if id == "" || userID == "" || pkg == nil {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	status := PurchaseStatusActive
	if startsAt.After(now) {
		status = PurchaseStatusPending
	}
	return &PackagePurchase{
		ID:          id,
		UserID:      userID,
		PackageID:   pkg.ID,
		Status:      status,
		PurchasedAt: now,
		StartsAt:    startsAt,
		ExpiresAt:   startsAt.AddDate(0, 0, pkg.DurationDays),
		PaymentRef:  paymentRef,
	}, nil
}

// GrantsAccess reports whether this row gives access at the given instant.
func (p *PackagePurchase) GrantsAccess(now time.Time) bool {
	if p.Status != PurchaseStatusActive && p.Status != PurchaseStatusPending {
		return false
	}
	return !p.StartsAt.After(now) && now.Before(p.ExpiresAt)
}
