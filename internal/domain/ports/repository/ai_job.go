package repository

import (
	"context"

	"classroom-ai-platform/internal/domain/model"
)

// StatusCounts is a cheap per-status aggregate used by queue status and
// operational stats.
type StatusCounts map[model.AIJobStatus]int

type AIJobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.AIJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.AIJob, error)
	// FindByUser returns the user's jobs newest first.
	FindByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.AIJob, error)
	CountByStatus(ctx context.Context, tx Tx) (StatusCounts, error)
	// CountPendingBefore returns how many pending jobs were enqueued
	// before the given job id (its position in the FIFO queue).
	CountPendingBefore(ctx context.Context, tx Tx, jobID string) (int, error)

	// FetchAndMarkRunning atomically claims the oldest pending job and
	// marks it running so no other worker picks it up. Returns
	// domain.ErrNotFound when the queue is empty.
	FetchAndMarkRunning(ctx context.Context) (*model.AIJob, error)

	// UpdateProgress persists a progress increment for a running job.
	UpdateProgress(ctx context.Context, tx Tx, jobID string, progress int) error

	// CompleteIfRunning writes the terminal state only if the job has not
	// already reached one (compare-and-set on status). Returns false when
	// another writer won the terminal race.
	CompleteIfRunning(ctx context.Context, tx Tx, job *model.AIJob) (bool, error)

	// StopAllByUser marks every pending/running job owned by userID as
	// failed with the fixed stop reason. Returns the number of jobs
	// transitioned; terminal jobs are untouched.
	StopAllByUser(ctx context.Context, tx Tx, userID string) (int, error)
}
