package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	memberships, err := json.Marshal(u.Memberships)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO users (id, email, name, role, memberships, registered_at, last_active_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  name = EXCLUDED.name,
  role = EXCLUDED.role,
  memberships = EXCLUDED.memberships,
  last_active_at = EXCLUDED.last_active_at;`
	_, err = execSQL(ctx, r.pool, tx, q,
		u.ID, u.Email, u.Name, u.Role, memberships, u.RegisteredAt, u.LastActiveAt)
	return err
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, email, name, role, memberships, registered_at, last_active_at
FROM users WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	const q = `SELECT id, email, name, role, memberships, registered_at, last_active_at
FROM users WHERE email = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, email)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var role string
	var memberships []byte
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &memberships, &u.RegisteredAt, &u.LastActiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	u.Role = model.Role(role)
	if len(memberships) > 0 {
		if err := json.Unmarshal(memberships, &u.Memberships); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &u, nil
}
