package repository

import (
	"context"

	"fitness-coaching-platform/internal/domain/model"
)

type PackageRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Package) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Package, error)
	// List returns packages ordered by price ascending.
	List(ctx context.Context, tx Tx, activeOnly bool) ([]*model.Package, error)
}
