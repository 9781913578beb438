package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/repository"
)

var _ repository.PackageRepository = (*packageRepo)(nil)

type packageRepo struct {
	pool *pgxpool.Pool
}

func NewPackageRepo(pool *pgxpool.Pool) *packageRepo {
	return &packageRepo{pool: pool}
}

const packageColumns = `id, name, price, currency, duration_days, active, features, not_included, created_at, updated_at`

func (r *packageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	const q = `
INSERT INTO packages (id, name, price, currency, duration_days, active, features, not_included, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price=$3, currency=$4, duration_days=$5, active=$6, features=$7, not_included=$8, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.Price, p.Currency, p.DurationDays, p.Active, p.Features, p.NotIncluded, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *packageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	const q = `SELECT ` + packageColumns + ` FROM packages WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPackage(row)
}

func (r *packageRepo) List(ctx context.Context, tx repository.Tx, activeOnly bool) ([]*model.Package, error) {
	q := `SELECT ` + packageColumns + ` FROM packages`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY price ASC;`

	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPackage(row pgx.Row) (*model.Package, error) {
	p := &model.Package{}
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Currency, &p.DurationDays, &p.Active, &p.Features, &p.NotIncluded, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
