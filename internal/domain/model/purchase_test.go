//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"fitness-coaching-platform/internal/domain"
)

func thirtyDayPackage(t *testing.T) *Package {
	t.Helper()
	pkg, err := NewPackage("pkg-1", "Premium", 599, "TRY", 30, nil, nil)
	if err != nil {
		t.Fatalf("NewPackage: %v", err)
	}
	return pkg
}

func TestNewPackagePurchase(t *testing.T) {
	t.Run("immediate start is active with calendar-day expiry", func(t *testing.T) {
		pkg := thirtyDayPackage(t)
		start := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

		p, err := NewPackagePurchase("p-1", "u-1", pkg, start, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Status != PurchaseStatusActive {
			t.Fatalf("expected active, got %s", p.Status)
		}
		want := time.Date(2026, 3, 31, 10, 30, 0, 0, time.UTC)
		if !p.ExpiresAt.Equal(want) {
			t.Fatalf("expected %v, got %v", want, p.ExpiresAt)
		}
	})

	t.Run("long duration crosses month boundaries by whole days", func(t *testing.T) {
		pkg := thirtyDayPackage(t)
		pkg.DurationDays = 90
		start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

		p, err := NewPackagePurchase("p-1", "u-1", pkg, start, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
		if !p.ExpiresAt.Equal(want) {
			t.Fatalf("expected %v, got %v", want, p.ExpiresAt)
		}
	})

	t.Run("future start is pending", func(t *testing.T) {
		pkg := thirtyDayPackage(t)
		p, err := NewPackagePurchase("p-1", "u-1", pkg, time.Now().Add(24*time.Hour), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Status != PurchaseStatusPending {
			t.Fatalf("expected pending, got %s", p.Status)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		pkg := thirtyDayPackage(t)
		if _, err := NewPackagePurchase("", "u-1", pkg, time.Now(), nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := NewPackagePurchase("p-1", "u-1", nil, time.Now(), nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestPackagePurchase_GrantsAccess(t *testing.T) {
	now := time.Now()
	base := PackagePurchase{
		Status:    PurchaseStatusActive,
		StartsAt:  now.Add(-time.Hour),
		ExpiresAt: now.Add(time.Hour),
	}

	cases := []struct {
		name   string
		mutate func(*PackagePurchase)
		want   bool
	}{
		{"active inside window", func(p *PackagePurchase) {}, true},
		{"pending inside window", func(p *PackagePurchase) { p.Status = PurchaseStatusPending }, true},
		{"expired status", func(p *PackagePurchase) { p.Status = PurchaseStatusExpired }, false},
		{"cancelled status", func(p *PackagePurchase) { p.Status = PurchaseStatusCancelled }, false},
		{"window not open yet", func(p *PackagePurchase) { p.StartsAt = now.Add(time.Minute) }, false},
		{"window closed", func(p *PackagePurchase) { p.ExpiresAt = now.Add(-time.Minute) }, false},
		{"boundary: expires exactly now", func(p *PackagePurchase) { p.ExpiresAt = now }, false},
		{"boundary: starts exactly now", func(p *PackagePurchase) { p.StartsAt = now }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			if got := p.GrantsAccess(now); got != tc.want {
				t.Fatalf("GrantsAccess = %v, want %v", got, tc.want)
			}
		})
	}
}
