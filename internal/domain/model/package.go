package model

import (
	"time"

	"fitness-coaching-platform/internal/domain"
)

// Package is a purchasable coaching tier. Price is an integer amount in the
// currency's minor-unit-free form (e.g. 599 means 599 TRY). Editing a package
// never rewrites existing purchases: duration and price are effectively
// snapshotted through the purchase's computed expiry and logged amount.
type Package struct {
	ID           string // UUID
	Name         string
	Price        int64
	Currency     string // ISO-ish code, typically "TRY"
	DurationDays int
	Active       bool
	Features     []string // ordered, shown as-is on the pricing page
	NotIncluded  []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewPackage validates and constructs a catalog entry.
func NewPackage(id, name string, price int64, currency string, durationDays int, features, notIncluded []string) (*Package, error) {
	if id == "" || name == "" || price < 0 || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "TRY"
	}
	now := time.Now()
	return &Package{
		ID:           id,
		Name:         name,
		Price:        price,
		Currency:     currency,
		DurationDays: durationDays,
		Active:       true,
		Features:     features,
		NotIncluded:  notIncluded,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
