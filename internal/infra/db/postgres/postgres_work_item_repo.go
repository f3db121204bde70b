package postgres

import (
	"context"
	"errors"
	"time"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.WorkItemRepository = (*workItemRepo)(nil)

type workItemRepo struct {
	pool *pgxpool.Pool
}

func NewWorkItemRepo(pool *pgxpool.Pool) *workItemRepo {
	return &workItemRepo{pool: pool}
}

func (r *workItemRepo) Save(ctx context.Context, tx repository.Tx, w *model.WorkItem) error {
	w.UpdatedAt = time.Now()
	const q = `
INSERT INTO work_items (id, org_id, owner_id, title, kind, status, ends_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  status = EXCLUDED.status,
  ends_at = EXCLUDED.ends_at,
  updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q,
		w.ID, w.OrgID, w.OwnerID, w.Title, w.Kind, w.Status, w.EndsAt, w.CreatedAt, w.UpdatedAt)
	return err
}

func (r *workItemRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WorkItem, error) {
	const q = `SELECT id, org_id, owner_id, title, kind, status, ends_at, created_at, updated_at
FROM work_items WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var w model.WorkItem
	var status string
	if err := row.Scan(&w.ID, &w.OrgID, &w.OwnerID, &w.Title, &w.Kind, &status, &w.EndsAt, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	w.Status = model.WorkItemStatus(status)
	return &w, nil
}

func (r *workItemRepo) ArchiveEnded(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	const q = `
UPDATE work_items
SET status = 'archived', updated_at = now()
WHERE status = 'published' AND ends_at IS NOT NULL AND ends_at <= $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
