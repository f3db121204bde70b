package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type AIJobStatus string

const (
	AIJobStatusPending   AIJobStatus = "pending"
	AIJobStatusRunning   AIJobStatus = "running"
	AIJobStatusCompleted AIJobStatus = "completed"
	AIJobStatusFailed    AIJobStatus = "failed"
)

type AIJobKind string

const (
	AIJobKindGrading    AIJobKind = "grading"
	AIJobKindGeneration AIJobKind = "generation"
	AIJobKindAssistant  AIJobKind = "assistant"
)

// StopReason is written to LastError when a user cancels their queued work.
const StopReason = "stopped by user"

// AIJob is one unit of asynchronous AI work (grading a submission,
// generating content, answering an assistant prompt).
// IDs are ULIDs, so lexical order equals creation order; FIFO dispatch
// is simply ORDER BY id.
type AIJob struct {
	ID               string
	UserID           string
	Kind             AIJobKind
	Status           AIJobStatus
	Progress         int // 0-100
	Input            string
	Output           string
	LastError        string
	Retries          int
	LinkedEntityID   string
	LinkedEntityType string // e.g. "submission", "worksheet"
	CreatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
	UpdatedAt        time.Time
}

func NewAIJob(userID string, kind AIJobKind, input, linkedID, linkedType string) *AIJob {
	now := time.Now()
	return &AIJob{
		ID:               ulid.Make().String(),
		UserID:           userID,
		Kind:             kind,
		Status:           AIJobStatusPending,
		Input:            input,
		LinkedEntityID:   linkedID,
		LinkedEntityType: linkedType,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (j *AIJob) Terminal() bool {
	return j.Status == AIJobStatusCompleted || j.Status == AIJobStatusFailed
}

// MarkRunning is only legal from pending.
func (j *AIJob) MarkRunning() bool {
	if j.Status != AIJobStatusPending {
		return false
	}
	now := time.Now()
	j.Status = AIJobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
	return true
}

// SetProgress clamps to [0,100] and is a no-op on terminal jobs.
func (j *AIJob) SetProgress(p int) {
	if j.Terminal() {
		return
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	j.Progress = p
	j.UpdatedAt = time.Now()
}

// Complete performs the single terminal transition to completed.
// Returns false if the job already reached a terminal state.
func (j *AIJob) Complete(output string) bool {
	if j.Terminal() {
		return false
	}
	now := time.Now()
	j.Status = AIJobStatusCompleted
	j.Output = output
	j.Progress = 100
	j.CompletedAt = &now
	j.UpdatedAt = now
	return true
}

// Fail performs the single terminal transition to failed.
func (j *AIJob) Fail(reason string) bool {
	if j.Terminal() {
		return false
	}
	now := time.Now()
	j.Status = AIJobStatusFailed
	j.LastError = reason
	j.CompletedAt = &now
	j.UpdatedAt = now
	return true
}
