package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, email, password_hash, name, phone, role, active, created_at`

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, email, password_hash, name, phone, role, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  email=$2, password_hash=$3, name=$4, phone=$5, role=$6, active=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Role, u.Active, u.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1;`
	return r.queryOne(ctx, tx, q, strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `SELECT COUNT(*) FROM users;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *userRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.Active, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}

var _ repository.TrainerLinkRepository = (*trainerLinkRepo)(nil)

type trainerLinkRepo struct {
	pool *pgxpool.Pool
}

func NewTrainerLinkRepo(pool *pgxpool.Pool) *trainerLinkRepo {
	return &trainerLinkRepo{pool: pool}
}

func (r *trainerLinkRepo) SaveLink(ctx context.Context, tx repository.Tx, link *model.TrainerLink) error {
	const q = `
INSERT INTO trainer_links (trainer_id, client_id, created_at)
VALUES ($1,$2,$3)
ON CONFLICT (trainer_id, client_id) DO NOTHING;`

	_, err := execSQL(ctx, r.pool, tx, q, link.TrainerID, link.ClientID, link.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *trainerLinkRepo) Exists(ctx context.Context, tx repository.Tx, trainerID, clientID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM trainer_links WHERE trainer_id=$1 AND client_id=$2);`
	row, err := pickRow(ctx, r.pool, tx, q, trainerID, clientID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *trainerLinkRepo) ListClients(ctx context.Context, tx repository.Tx, trainerID string) ([]*model.User, error) {
	const q = `
SELECT u.id, u.email, u.password_hash, u.name, u.phone, u.role, u.active, u.created_at
  FROM users u
  JOIN trainer_links tl ON tl.client_id = u.id
 WHERE tl.trainer_id = $1
 ORDER BY u.created_at ASC;`

	rows, err := queryRows(ctx, r.pool, tx, q, trainerID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
