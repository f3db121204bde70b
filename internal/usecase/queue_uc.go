// File: internal/usecase/queue_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/queue"
	"classroom-ai-platform/internal/domain/ports/repository"
	"classroom-ai-platform/internal/infra/metrics"
)

// Compile-time check
var _ QueueUseCase = (*queueUC)(nil)

// userQueueLimit bounds the per-user job listing. Active jobs sort
// newest, so the cap only ever trims long-finished history.
const userQueueLimit = 50

// JobStatusInfo is what pollers get back for one job.
type JobStatusInfo struct {
	JobID    string            `json:"job_id"`
	Status   model.AIJobStatus `json:"status"`
	Progress int               `json:"progress"`
	// QueuePosition is set only for pending jobs: 0 = next to dispatch.
	QueuePosition *int   `json:"queue_position,omitempty"`
	LastError     string `json:"last_error,omitempty"`
}

// UserQueueInfo lists a user's jobs newest first with a rough wait estimate.
type UserQueueInfo struct {
	Jobs          []JobStatusInfo `json:"jobs"`
	PendingCount  int             `json:"pending_count"`
	RunningCount  int             `json:"running_count"`
	EstimatedWait time.Duration   `json:"estimated_wait_ns"`
}

// QueueStats aggregates counts across all users for dashboards. The
// per-status scan is the expensive part, so callers opt in explicitly.
type QueueStats struct {
	Snapshot   queue.Snapshot            `json:"snapshot"`
	ByStatus   map[model.AIJobStatus]int `json:"by_status,omitempty"`
	Aggregates bool                      `json:"aggregates"`
}

type QueueUseCase interface {
	// Enqueue records the job as pending and returns immediately; the
	// dispatcher admits it when slots and rate budget allow. Capacity is
	// never an error here.
	Enqueue(ctx context.Context, userID string, kind model.AIJobKind, input, linkedID, linkedType string) (*model.AIJob, error)
	GetStatus(ctx context.Context, jobID string) (*JobStatusInfo, error)
	// GetUserQueueInfo lists the user's jobs newest first, capped at
	// userQueueLimit; older terminal jobs fall off the listing.
	GetUserQueueInfo(ctx context.Context, userID string) (*UserQueueInfo, error)
	GetRateLimitStatus() queue.Snapshot
	GetQueueStats(ctx context.Context, includeAggregates bool) (*QueueStats, error)
	// StopAll fails every pending/running job owned by userID. Idempotent;
	// already-issued provider calls are not refunded.
	StopAll(ctx context.Context, userID string) (int, error)
}

type queueUC struct {
	jobs      repository.AIJobRepository
	admission queue.Admission
	// avgJobTime seeds the wait estimate; advisory only.
	avgJobTime time.Duration
}

func NewQueueUseCase(jobs repository.AIJobRepository, admission queue.Admission) *queueUC {
	return &queueUC{jobs: jobs, admission: admission, avgJobTime: 20 * time.Second}
}

func (q *queueUC) Enqueue(ctx context.Context, userID string, kind model.AIJobKind, input, linkedID, linkedType string) (*model.AIJob, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	switch kind {
	case model.AIJobKindGrading, model.AIJobKindGeneration, model.AIJobKindAssistant:
	default:
		return nil, domain.ErrInvalidArgument
	}
	if strings.TrimSpace(input) == "" {
		return nil, domain.ErrInvalidArgument
	}

	job := model.NewAIJob(userID, kind, input, linkedID, linkedType)
	if err := q.jobs.Save(ctx, nil, job); err != nil {
		return nil, err
	}
	metrics.IncJobEnqueued(string(kind))
	return job, nil
}

func (q *queueUC) GetStatus(ctx context.Context, jobID string) (*JobStatusInfo, error) {
	if jobID == "" {
		return nil, domain.ErrInvalidArgument
	}
	job, err := q.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		// Unknown id is a normal state for already-processed work, not a
		// server fault; callers translate ErrNotFound to their sentinel.
		return nil, err
	}
	info := &JobStatusInfo{
		JobID:     job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		LastError: job.LastError,
	}
	if job.Status == model.AIJobStatusPending {
		pos, err := q.jobs.CountPendingBefore(ctx, nil, job.ID)
		if err == nil {
			info.QueuePosition = &pos
		}
	}
	return info, nil
}

func (q *queueUC) GetUserQueueInfo(ctx context.Context, userID string) (*UserQueueInfo, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	jobs, err := q.jobs.FindByUser(ctx, nil, userID, userQueueLimit)
	if err != nil {
		return nil, err
	}

	out := &UserQueueInfo{Jobs: make([]JobStatusInfo, 0, len(jobs))}
	for _, j := range jobs {
		info := JobStatusInfo{JobID: j.ID, Status: j.Status, Progress: j.Progress, LastError: j.LastError}
		switch j.Status {
		case model.AIJobStatusPending:
			out.PendingCount++
			if pos, err := q.jobs.CountPendingBefore(ctx, nil, j.ID); err == nil {
				info.QueuePosition = &pos
			}
		case model.AIJobStatusRunning:
			out.RunningCount++
		}
		out.Jobs = append(out.Jobs, info)
	}

	snap := q.admission.Snapshot()
	if out.PendingCount > 0 && snap.MaxConcurrent > 0 {
		// Rough FIFO estimate: pending jobs ahead divided across slots.
		out.EstimatedWait = q.avgJobTime * time.Duration(1+out.PendingCount/snap.MaxConcurrent)
	}
	return out, nil
}

func (q *queueUC) GetRateLimitStatus() queue.Snapshot {
	return q.admission.Snapshot()
}

func (q *queueUC) GetQueueStats(ctx context.Context, includeAggregates bool) (*QueueStats, error) {
	stats := &QueueStats{Snapshot: q.admission.Snapshot(), Aggregates: includeAggregates}
	if !includeAggregates {
		return stats, nil
	}
	counts, err := q.jobs.CountByStatus(ctx, nil)
	if err != nil {
		return nil, err
	}
	stats.ByStatus = counts
	return stats, nil
}

func (q *queueUC) StopAll(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.ErrInvalidArgument
	}
	n, err := q.jobs.StopAllByUser(ctx, nil, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddJobsStopped(n)
	}
	return n, nil
}
