package postgres

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `id, user_id, package_id, status, purchased_at, starts_at, expires_at, payment_ref, cancelled_at`

// hashToInt64 maps a user id onto the advisory-lock keyspace.
func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

// AcquireUserLock takes a transaction-scoped advisory lock keyed by user, so
// concurrent supersessions for the same user serialize instead of expiring
// each other's fresh rows.
func (r *purchaseRepo) AcquireUserLock(ctx context.Context, tx repository.Tx, userID string) error {
	if _, ok := tx.(pgx.Tx); !ok {
		return domain.ErrInvalidExecContext
	}
	_, err := execSQL(ctx, r.pool, tx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(userID))
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *purchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.PackagePurchase) error {
	const q = `
INSERT INTO package_purchases (id, user_id, package_id, status, purchased_at, starts_at, expires_at, payment_ref, cancelled_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  status=$4, starts_at=$6, expires_at=$7, payment_ref=$8, cancelled_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.PackageID, p.Status, p.PurchasedAt, p.StartsAt, p.ExpiresAt, p.PaymentRef, p.CancelledAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *purchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PackagePurchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM package_purchases WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) FindGranting(ctx context.Context, tx repository.Tx, userID string, now time.Time) (*model.PackagePurchase, error) {
	const q = `
SELECT ` + purchaseColumns + `
  FROM package_purchases
 WHERE user_id=$1
   AND status IN ('active','pending')
   AND starts_at <= $2 AND expires_at > $2
 ORDER BY expires_at DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, now)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PackagePurchase, error) {
	const q = `
SELECT ` + purchaseColumns + `
  FROM package_purchases
 WHERE user_id=$1
 ORDER BY purchased_at DESC;`
	return r.queryMany(ctx, tx, q, userID)
}

func (r *purchaseRepo) ExpireValidByUser(ctx context.Context, tx repository.Tx, userID string, now time.Time) (int, error) {
	const q = `
UPDATE package_purchases
   SET status='expired', cancelled_at=$2
 WHERE user_id=$1
   AND status IN ('active','pending')
   AND expires_at > $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, userID, now)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func (r *purchaseRepo) FinishExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE package_purchases
   SET status='expired'
 WHERE status IN ('active','pending')
   AND expires_at <= $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func (r *purchaseRepo) StartDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE package_purchases
   SET status='active'
 WHERE status='pending'
   AND starts_at <= $1 AND expires_at > $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func (r *purchaseRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	const q = `SELECT status, COUNT(*) FROM package_purchases GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *purchaseRepo) CountGrantingByPackage(ctx context.Context, tx repository.Tx, now time.Time) (map[string]int, error) {
	const q = `
SELECT package_id, COUNT(*)
  FROM package_purchases
 WHERE status IN ('active','pending')
   AND starts_at <= $1 AND expires_at > $1
 GROUP BY package_id;`
	rows, err := queryRows(ctx, r.pool, tx, q, now)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var pkgID string
		var n int
		if err := rows.Scan(&pkgID, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[pkgID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *purchaseRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PackagePurchase, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PackagePurchase
	for rows.Next() {
		p, err := scanPurchase(rows)
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

func scanPurchase(row pgx.Row) (*model.PackagePurchase, error) {
	p := &model.PackagePurchase{}
	if err := row.Scan(&p.ID, &p.UserID, &p.PackageID, &p.Status, &p.PurchasedAt, &p.StartsAt, &p.ExpiresAt, &p.PaymentRef, &p.CancelledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
