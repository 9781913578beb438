package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase is the authoritative ledger of package purchases. Every
// premium-access check in the platform goes through GetActivePurchase.
type SubscriptionUseCase interface {
	// GetActivePurchase returns the access-granting purchase with the latest
	// expiry, or ErrNotFound when the user has none.
	GetActivePurchase(ctx context.Context, userID string) (*model.PackagePurchase, error)
	ListPurchases(ctx context.Context, userID string) ([]*model.PackagePurchase, error)
	// CreatePurchase expires every still-valid purchase of the user and
	// inserts a fresh ACTIVE row in one transaction. A new purchase always
	// wins; remaining days on the old package are forfeited.
	CreatePurchase(ctx context.Context, userID string, pkg *model.Package, paymentRef *string) (*model.PackagePurchase, error)
	// CreatePurchaseTx is the in-transaction variant used by payment
	// reconciliation so the ledger write shares the claim transaction.
	CreatePurchaseTx(ctx context.Context, tx repository.Tx, userID string, pkg *model.Package, paymentRef *string) (*model.PackagePurchase, error)
	// AssignManual lets a trainer grant a package to a linked client. A
	// future start date yields a PENDING purchase with expiry computed from
	// that start.
	AssignManual(ctx context.Context, actor *model.User, clientID, packageID string, startAt *time.Time) (*model.PackagePurchase, error)
	// Cancel collapses the purchase window to "now" so access checks exclude
	// it immediately. Rows are never deleted.
	Cancel(ctx context.Context, actor *model.User, purchaseID string) error

	// Worker entry points.
	FinishExpired(ctx context.Context) (int, error)
	StartDue(ctx context.Context) (int, error)
}

type subscriptionUC struct {
	purchases repository.PurchaseRepository
	packages  repository.PackageRepository
	links     repository.TrainerLinkRepository
	tm        repository.TransactionManager
	log       *zerolog.Logger
}

func NewSubscriptionUseCase(
	purchases repository.PurchaseRepository,
	packages repository.PackageRepository,
	links repository.TrainerLinkRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{purchases: purchases, packages: packages, links: links, tm: tm, log: &l}
}

func (uc *subscriptionUC) GetActivePurchase(ctx context.Context, userID string) (*model.PackagePurchase, error) {
	return uc.purchases.FindGranting(ctx, nil, userID, time.Now())
}

func (uc *subscriptionUC) ListPurchases(ctx context.Context, userID string) ([]*model.PackagePurchase, error) {
	return uc.purchases.ListByUser(ctx, nil, userID)
}

func (uc *subscriptionUC) CreatePurchase(ctx context.Context, userID string, pkg *model.Package, paymentRef *string) (*model.PackagePurchase, error) {
	var created *model.PackagePurchase
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		created, err = uc.CreatePurchaseTx(ctx, tx, userID, pkg, paymentRef)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (uc *subscriptionUC) CreatePurchaseTx(ctx context.Context, tx repository.Tx, userID string, pkg *model.Package, paymentRef *string) (*model.PackagePurchase, error) {
	if pkg == nil || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.supersedeAndInsert(ctx, tx, userID, pkg, time.Now(), paymentRef)
}

// supersedeAndInsert is the single write path of the ledger: serialize on the
// user, expire the still-valid rows, insert the new one.
func (uc *subscriptionUC) supersedeAndInsert(ctx context.Context, tx repository.Tx, userID string, pkg *model.Package, startsAt time.Time, paymentRef *string) (*model.PackagePurchase, error) {
	if err := uc.purchases.AcquireUserLock(ctx, tx, userID); err != nil {
		return nil, err
	}

	now := time.Now()
	expired, err := uc.purchases.ExpireValidByUser(ctx, tx, userID, now)
	if err != nil {
		return nil, err
	}
	if expired > 0 {
		uc.log.Info().Str("user_id", userID).Int("superseded", expired).Msg("previous purchases expired by new purchase")
	}

	p, err := model.NewPackagePurchase(uuid.NewString(), userID, pkg, startsAt, paymentRef)
	if err != nil {
		return nil, err
	}
	if err := uc.purchases.Save(ctx, tx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *subscriptionUC) AssignManual(ctx context.Context, actor *model.User, clientID, packageID string, startAt *time.Time) (*model.PackagePurchase, error) {
	if actor == nil || clientID == "" || packageID == "" {
		return nil, domain.ErrInvalidArgument
	}
	switch actor.Role {
	case model.RoleAdmin:
		// admins may assign to anyone
	case model.RoleTrainer:
		linked, err := uc.links.Exists(ctx, nil, actor.ID, clientID)
		if err != nil {
			return nil, err
		}
		if !linked {
			return nil, domain.ErrNotLinked
		}
	default:
		return nil, domain.ErrForbidden
	}

	pkg, err := uc.packages.FindByID(ctx, nil, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.Active {
		return nil, domain.ErrPackageInactive
	}

	start := time.Now()
	if startAt != nil {
		start = *startAt
	}

	var created *model.PackagePurchase
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		created, err = uc.supersedeAndInsert(ctx, tx, clientID, pkg, start, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (uc *subscriptionUC) Cancel(ctx context.Context, actor *model.User, purchaseID string) error {
	if actor == nil || purchaseID == "" {
		return domain.ErrInvalidArgument
	}
	return uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := uc.purchases.FindByID(ctx, tx, purchaseID)
		if err != nil {
			return err
		}

		switch actor.Role {
		case model.RoleAdmin:
		case model.RoleTrainer:
			linked, err := uc.links.Exists(ctx, tx, actor.ID, p.UserID)
			if err != nil {
				return err
			}
			if !linked {
				return domain.ErrNotLinked
			}
		default:
			return domain.ErrForbidden
		}

		now := time.Now()
		p.Status = model.PurchaseStatusCancelled
		p.CancelledAt = &now
		p.ExpiresAt = now // the access check excludes it immediately
		return uc.purchases.Save(ctx, tx, p)
	})
}

func (uc *subscriptionUC) FinishExpired(ctx context.Context) (int, error) {
	return uc.purchases.FinishExpired(ctx, nil, time.Now())
}

func (uc *subscriptionUC) StartDue(ctx context.Context) (int, error) {
	return uc.purchases.StartDue(ctx, nil, time.Now())
}
