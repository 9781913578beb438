package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

// PackageInput carries the editable fields of a catalog entry.
type PackageInput struct {
	Name         string
	Price        int64
	Currency     string
	DurationDays int
	Features     []string
	NotIncluded  []string
}

type CatalogUseCase interface {
	// List returns the catalog ordered by price. Non-admin callers only see
	// active packages.
	List(ctx context.Context, includeInactive bool) ([]*model.Package, error)
	Get(ctx context.Context, id string) (*model.Package, error)
	Create(ctx context.Context, in PackageInput) (*model.Package, error)
	// Update edits a package in place. Existing purchases keep the terms they
	// were sold under; only future purchases see the change.
	Update(ctx context.Context, id string, in PackageInput) (*model.Package, error)
	// Deactivate hides the package from purchase without touching history.
	Deactivate(ctx context.Context, id string) error
}

type catalogUC struct {
	packages repository.PackageRepository
	log      *zerolog.Logger
}

func NewCatalogUseCase(packages repository.PackageRepository, logger *zerolog.Logger) *catalogUC {
	l := logger.With().Str("component", "CatalogUC").Logger()
	return &catalogUC{packages: packages, log: &l}
}

func (uc *catalogUC) List(ctx context.Context, includeInactive bool) ([]*model.Package, error) {
	return uc.packages.List(ctx, nil, !includeInactive)
}

func (uc *catalogUC) Get(ctx context.Context, id string) (*model.Package, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.packages.FindByID(ctx, nil, id)
}

func (uc *catalogUC) Create(ctx context.Context, in PackageInput) (*model.Package, error) {
	pkg, err := model.NewPackage(uuid.NewString(), in.Name, in.Price, in.Currency, in.DurationDays, in.Features, in.NotIncluded)
	if err != nil {
		return nil, err
	}
	if err := uc.packages.Save(ctx, nil, pkg); err != nil {
		return nil, err
	}
	uc.log.Info().Str("package_id", pkg.ID).Str("name", pkg.Name).Msg("package created")
	return pkg, nil
}

func (uc *catalogUC) Update(ctx context.Context, id string, in PackageInput) (*model.Package, error) {
	pkg, err := uc.packages.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if in.Name == "" || in.Price < 0 || in.DurationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	pkg.Name = in.Name
	pkg.Price = in.Price
	if in.Currency != "" {
		pkg.Currency = in.Currency
	}
	pkg.DurationDays = in.DurationDays
	pkg.Features = in.Features
	pkg.NotIncluded = in.NotIncluded
	if err := uc.packages.Save(ctx, nil, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (uc *catalogUC) Deactivate(ctx context.Context, id string) error {
	pkg, err := uc.packages.FindByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if !pkg.Active {
		return nil
	}
	pkg.Active = false
	if err := uc.packages.Save(ctx, nil, pkg); err != nil {
		return err
	}
	uc.log.Info().Str("package_id", id).Msg("package deactivated")
	return nil
}
