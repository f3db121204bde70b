// File: internal/usecase/archive_uc.go
package usecase

import (
	"context"
	"time"

	"classroom-ai-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ ArchiveUseCase = (*archiveUC)(nil)

// ArchiveUseCase moves published work items past their effective end
// time into the archived state. Triggered by the cron endpoint and the
// background sweep worker.
type ArchiveUseCase interface {
	SweepEnded(ctx context.Context) (int, error)
}

type archiveUC struct {
	items repository.WorkItemRepository
}

func NewArchiveUseCase(items repository.WorkItemRepository) *archiveUC {
	return &archiveUC{items: items}
}

func (a *archiveUC) SweepEnded(ctx context.Context) (int, error) {
	return a.items.ArchiveEnded(ctx, nil, time.Now())
}
