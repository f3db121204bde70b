package ai

import (
	"context"

	"classroom-ai-platform/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIProvider = (*limitedProvider)(nil)

// limitedProvider caps concurrent upstream calls with a semaphore. This is a
// per-process backstop underneath the queue's own admission control.
type limitedProvider struct {
	inner adapter.AIProvider
	sem   chan struct{}
}

func NewLimitedProvider(inner adapter.AIProvider, maxConcurrent int) adapter.AIProvider {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedProvider{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedProvider) Name() string { return l.inner.Name() }

func (l *limitedProvider) Complete(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", adapter.Usage{}, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Complete(ctx, model, messages)
}

func (l *limitedProvider) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.CountTokens(ctx, model, messages)
}
