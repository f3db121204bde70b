package repository

import (
	"context"
	"time"

	"classroom-ai-platform/internal/domain/model"
)

type WorkItemRepository interface {
	Save(ctx context.Context, tx Tx, w *model.WorkItem) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.WorkItem, error)
	// ArchiveEnded transitions published items whose end time is at or
	// before the cutoff to archived, returning how many changed.
	ArchiveEnded(ctx context.Context, tx Tx, cutoff time.Time) (int, error)
}
