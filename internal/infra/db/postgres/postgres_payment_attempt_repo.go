package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/repository"
)

var _ repository.PaymentAttemptRepository = (*paymentAttemptRepo)(nil)

type paymentAttemptRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentAttemptRepo(pool *pgxpool.Pool) *paymentAttemptRepo {
	return &paymentAttemptRepo{pool: pool}
}

const attemptColumns = `id, action, status, merchant_oid, user_id, payload, error_detail, created_at`

func (r *paymentAttemptRepo) Save(ctx context.Context, tx repository.Tx, a *model.PaymentAttempt) error {
	const q = `
INSERT INTO payment_attempts (id, action, status, merchant_oid, user_id, payload, error_detail, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  status=$3, payload=$6, error_detail=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.Action, a.Status, a.MerchantOid, a.UserID, a.Payload, a.ErrorDetail, a.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentAttemptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentAttempt, error) {
	const q = `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanAttempt(row)
}

func (r *paymentAttemptRepo) FindLatestInitiated(ctx context.Context, tx repository.Tx, merchantOid, userID string) (*model.PaymentAttempt, error) {
	q := `
SELECT ` + attemptColumns + `
  FROM payment_attempts
 WHERE action='payment.initiated' AND merchant_oid=$1 AND user_id=$2
 ORDER BY created_at DESC
 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, merchantOid, userID)
	if err != nil {
		return nil, err
	}
	return scanAttempt(row)
}

// Claim is the compare-and-swap half of reconciliation: only the caller that
// flips the row away from its prior status proceeds to create a purchase.
func (r *paymentAttemptRepo) Claim(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE payment_attempts
   SET status='completed'
 WHERE id=$1 AND status <> 'completed';`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentAttemptRepo) AttachPurchase(ctx context.Context, tx repository.Tx, id, purchaseID string) error {
	const q = `
UPDATE payment_attempts
   SET payload = COALESCE(payload, '{}'::jsonb) || jsonb_build_object('purchase_id', $2::text)
 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, purchaseID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentAttemptRepo) SweepStaleInitiated(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 200
	}
	const q = `
UPDATE payment_attempts
   SET status='error', error_detail='stale checkout attempt, no completion received'
 WHERE id IN (
   SELECT id FROM payment_attempts
    WHERE action='payment.initiated' AND status='success' AND created_at < $1
    ORDER BY created_at ASC
    LIMIT $2
 );`
	tag, err := execSQL(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func (r *paymentAttemptRepo) SumCompletedAmountSince(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `
SELECT COALESCE(SUM((payload->>'amount')::bigint), 0)
  FROM payment_attempts
 WHERE action='payment.completed' AND created_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func scanAttempt(row pgx.Row) (*model.PaymentAttempt, error) {
	a := &model.PaymentAttempt{}
	if err := row.Scan(&a.ID, &a.Action, &a.Status, &a.MerchantOid, &a.UserID, &a.Payload, &a.ErrorDetail, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}
