package postgres

import (
	"context"
	"errors"
	"time"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/repository"
	"classroom-ai-platform/internal/infra/security"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.AIJobRepository = (*aiJobRepo)(nil)

type aiJobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
	enc  *security.EncryptionService // nil disables payload encryption (dev)
}

func NewAIJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager, enc *security.EncryptionService) *aiJobRepo {
	return &aiJobRepo{pool: pool, tm: tm, enc: enc}
}

const aiJobColumns = `id, user_id, kind, status, progress, input, output, last_error, retries,
linked_entity_id, linked_entity_type, created_at, started_at, completed_at, updated_at`

func (r *aiJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.AIJob) error {
	job.UpdatedAt = time.Now()

	input, err := r.seal(job.Input)
	if err != nil {
		return err
	}
	output, err := r.seal(job.Output)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO ai_jobs (` + aiJobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  progress = EXCLUDED.progress,
  output = EXCLUDED.output,
  last_error = EXCLUDED.last_error,
  retries = EXCLUDED.retries,
  started_at = EXCLUDED.started_at,
  completed_at = EXCLUDED.completed_at,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.UserID, job.Kind, job.Status, job.Progress, input, output,
		job.LastError, job.Retries, job.LinkedEntityID, job.LinkedEntityType,
		job.CreatedAt, job.StartedAt, job.CompletedAt, job.UpdatedAt)
	return err
}

func (r *aiJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AIJob, error) {
	const q = `SELECT ` + aiJobColumns + ` FROM ai_jobs WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return r.scanJob(row)
}

func (r *aiJobRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.AIJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + aiJobColumns + ` FROM ai_jobs WHERE user_id = $1 ORDER BY id DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AIJob
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *aiJobRepo) CountByStatus(ctx context.Context, tx repository.Tx) (repository.StatusCounts, error) {
	const q = `SELECT status, COUNT(*) FROM ai_jobs GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := repository.StatusCounts{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.AIJobStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *aiJobRepo) CountPendingBefore(ctx context.Context, tx repository.Tx, jobID string) (int, error) {
	// ULIDs sort by creation time, so "enqueued earlier" is just id <.
	const q = `SELECT COUNT(*) FROM ai_jobs WHERE status = 'pending' AND id < $1;`
	row, err := pickRow(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *aiJobRepo) FetchAndMarkRunning(ctx context.Context) (*model.AIJob, error) {
	var job *model.AIJob

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const fetchQuery = `
SELECT ` + aiJobColumns + `
FROM ai_jobs
WHERE status = 'pending'
ORDER BY id
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, fetchQuery)
		if err != nil {
			return err
		}
		fetched, err := r.scanJob(row)
		if err != nil {
			return err
		}

		// Mark the job as running so no one else picks it up.
		fetched.MarkRunning()
		const mark = `UPDATE ai_jobs SET status = 'running', started_at = $2, updated_at = $3 WHERE id = $1;`
		if _, err := execSQL(ctx, r.pool, tx, mark, fetched.ID, fetched.StartedAt, fetched.UpdatedAt); err != nil {
			return err
		}

		job = fetched
		return nil
	})

	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

func (r *aiJobRepo) UpdateProgress(ctx context.Context, tx repository.Tx, jobID string, progress int) error {
	const q = `
UPDATE ai_jobs SET progress = $2, updated_at = now()
WHERE id = $1 AND status = 'running';`
	_, err := execSQL(ctx, r.pool, tx, q, jobID, progress)
	return err
}

func (r *aiJobRepo) CompleteIfRunning(ctx context.Context, tx repository.Tx, job *model.AIJob) (bool, error) {
	if !job.Terminal() {
		return false, domain.ErrInvalidArgument
	}
	output, err := r.seal(job.Output)
	if err != nil {
		return false, err
	}

	// Compare-and-set on status: a job already moved to a terminal state
	// by another writer (e.g. a user stop) is left untouched, and this
	// worker's output is discarded.
	const q = `
UPDATE ai_jobs
SET status = $2, progress = $3, output = $4, last_error = $5, retries = $6,
    completed_at = $7, updated_at = $8
WHERE id = $1 AND status IN ('pending', 'running');`

	tag, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.Status, job.Progress, output, job.LastError, job.Retries,
		job.CompletedAt, job.UpdatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *aiJobRepo) StopAllByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	const q = `
UPDATE ai_jobs
SET status = 'failed', last_error = $2, completed_at = now(), updated_at = now()
WHERE user_id = $1 AND status IN ('pending', 'running');`

	tag, err := execSQL(ctx, r.pool, tx, q, userID, model.StopReason)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *aiJobRepo) scanJob(row rowScanner) (*model.AIJob, error) {
	var job model.AIJob
	var status, kind string
	err := row.Scan(
		&job.ID, &job.UserID, &kind, &status, &job.Progress, &job.Input, &job.Output,
		&job.LastError, &job.Retries, &job.LinkedEntityID, &job.LinkedEntityType,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	job.Kind = model.AIJobKind(kind)
	job.Status = model.AIJobStatus(status)

	if job.Input, err = r.open(job.Input); err != nil {
		return nil, err
	}
	if job.Output, err = r.open(job.Output); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *aiJobRepo) seal(plain string) (string, error) {
	if r.enc == nil || plain == "" {
		return plain, nil
	}
	return r.enc.Encrypt(plain)
}

func (r *aiJobRepo) open(stored string) (string, error) {
	if r.enc == nil || stored == "" {
		return stored, nil
	}
	return r.enc.Decrypt(stored)
}
