package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"classroom-ai-platform/internal/infra/metrics"
	"classroom-ai-platform/internal/usecase"
)

// ArchiveWorker periodically archives ended work items via the use case.
// The cron HTTP endpoint triggers the same sweep on demand; both paths are
// idempotent, so overlap is harmless.
type ArchiveWorker struct {
	interval time.Duration
	archive  usecase.ArchiveUseCase
	log      *zerolog.Logger
}

func NewArchiveWorker(interval time.Duration, archive usecase.ArchiveUseCase, logger *zerolog.Logger) *ArchiveWorker {
	compLog := logger.With().Str("component", "ArchiveWorker").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	return &ArchiveWorker{
		interval: interval,
		archive:  archive,
		log:      &compLog,
	}
}

func (w *ArchiveWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting archive worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping archive worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.archive.SweepEnded(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("archive sweep failed")
			}
			if n > 0 {
				metrics.AddWorkItemsArchived(n)
				w.log.Info().Int("count", n).Msg("work items archived")
			}
		}
	}
}
