package postgres

import (
	"context"
	"errors"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.SessionRepository = (*sessionRepo)(nil)

type sessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *sessionRepo {
	return &sessionRepo{pool: pool}
}

func (r *sessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Session) error {
	const q = `
INSERT INTO sessions (id, user_id, created_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at;`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.CreatedAt, s.ExpiresAt)
	return err
}

func (r *sessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Session, error) {
	const q = `SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var s model.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM sessions WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
