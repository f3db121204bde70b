package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/adapter"
	"classroom-ai-platform/internal/domain/ports/queue"
	"classroom-ai-platform/internal/domain/ports/repository"
	"classroom-ai-platform/internal/infra/metrics"
)

// Dispatcher drains the AI job queue: on each tick it asks the admission
// controller for a slot, claims the oldest pending job, and runs it on the
// worker pool. A denied slot is a deferral, not a failure; the job stays
// pending and is retried on a later tick.
type Dispatcher struct {
	jobs       repository.AIJobRepository
	provider   adapter.AIProvider
	admission  queue.Admission
	tick       time.Duration
	maxRetries int
	retryDelay time.Duration
	model      string
	log        *zerolog.Logger
}

func NewDispatcher(
	jobs repository.AIJobRepository,
	provider adapter.AIProvider,
	admission queue.Admission,
	tick time.Duration,
	maxRetries int,
	model string,
	log *zerolog.Logger,
) *Dispatcher {
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Dispatcher{
		jobs:       jobs,
		provider:   provider,
		admission:  admission,
		tick:       tick,
		maxRetries: maxRetries,
		retryDelay: 2 * time.Second,
		model:      model,
		log:        log,
	}
}

// Start runs the dispatch loop until ctx is cancelled.
// This should be run in a goroutine.
func (d *Dispatcher) Start(ctx context.Context, pool *Pool) {
	d.log.Info().Dur("tick", d.tick).Msg("job dispatcher started")
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("job dispatcher stopping")
			return
		case <-ticker.C:
			d.dispatchOne(pool)
		}
	}
}

func (d *Dispatcher) dispatchOne(pool *Pool) {
	if !d.admission.TryAcquire() {
		metrics.IncAdmissionDeferred()
		d.publishGauges()
		return
	}
	d.publishGauges()

	err := pool.Submit(func(ctx context.Context) error {
		claimed := false
		defer func() {
			if claimed {
				d.admission.Release()
			} else {
				// Nothing was claimed; refund the rate budget too so
				// empty ticks do not drain the window.
				d.admission.Cancel()
			}
			d.publishGauges()
		}()
		claimed = d.processOne(ctx)
		return nil
	})
	if err != nil {
		// Slot and budget go back immediately; the job was never claimed.
		d.admission.Cancel()
		d.publishGauges()
	}
}

// processOne claims and runs the oldest pending job. It reports whether
// a job was actually claimed, so the caller knows whether the admission
// ticket was used or should be refunded.
func (d *Dispatcher) processOne(ctx context.Context) bool {
	job, err := d.jobs.FetchAndMarkRunning(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			d.log.Error().Err(err).Msg("failed to claim job")
		}
		return false
	}

	d.log.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("processing job")
	_ = d.jobs.UpdateProgress(ctx, nil, job.ID, 10)

	reply, usage, callErr, latency := d.callProvider(ctx, job)

	metrics.ObserveAICall(d.provider.Name(), d.model,
		usage.PromptTokens, usage.CompletionTokens,
		int(latency/time.Millisecond), callErr == nil)

	if callErr != nil {
		job.Fail(callErr.Error())
		d.log.Error().Err(callErr).Str("job_id", job.ID).Msg("job failed")
	} else {
		// Checkpoint before the terminal write: a crash between the
		// provider returning and the final save leaves an inspectable
		// record instead of one stuck at the initial increment.
		_ = d.jobs.UpdateProgress(ctx, nil, job.ID, 90)
		job.Complete(reply)
	}

	// Terminal write is a compare-and-set against the stored status: if the
	// user stopped the job mid-flight, the stop wins and this result is
	// silently discarded.
	applied, err := d.jobs.CompleteIfRunning(context.Background(), nil, job)
	if err != nil {
		d.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to finalize job")
		return true
	}
	if !applied {
		d.log.Debug().Str("job_id", job.ID).Msg("job already terminal; result discarded")
		return true
	}
	metrics.IncAIJob(string(job.Status))
	d.log.Info().Str("job_id", job.ID).Str("status", string(job.Status)).
		Dur("duration_ms", latency).Msg("job finished")
	return true
}

// callProvider runs the upstream call with bounded retries on transient
// provider errors (rate limited, unavailable).
func (d *Dispatcher) callProvider(ctx context.Context, job *model.AIJob) (string, adapter.Usage, error, time.Duration) {
	messages := promptFor(job)
	start := time.Now()

	var (
		reply string
		usage adapter.Usage
		err   error
	)
	for attempt := 0; ; attempt++ {
		reply, usage, err = d.provider.Complete(ctx, d.model, messages)
		if err == nil || !domain.Retryable(err) || attempt >= d.maxRetries {
			break
		}
		job.Retries++
		metrics.IncJobRetry()
		d.log.Warn().Err(err).Str("job_id", job.ID).Int("attempt", attempt+1).Msg("provider retry")
		select {
		case <-time.After(d.retryDelay):
		case <-ctx.Done():
			return "", usage, ctx.Err(), time.Since(start)
		}
	}
	return reply, usage, err, time.Since(start)
}

func promptFor(job *model.AIJob) []adapter.Message {
	var system string
	switch job.Kind {
	case model.AIJobKindGrading:
		system = "You are a grading assistant. Grade the submission below and return structured feedback."
	case model.AIJobKindGeneration:
		system = "You are a content generator for teachers. Produce the requested material."
	default:
		system = "You are a helpful teaching assistant."
	}
	return []adapter.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: job.Input},
	}
}

func (d *Dispatcher) publishGauges() {
	snap := d.admission.Snapshot()
	metrics.SetQueueGauges(snap.InFlight, snap.AvailableSlots)
}
