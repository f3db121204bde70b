package ai

import (
	"context"
	"strings"
	"time"

	"classroom-ai-platform/internal/domain/ports/adapter"
)

var _ adapter.AIProvider = (*NoopProvider)(nil)

// NoopProvider implements adapter.AIProvider for local/dev runs. It returns a
// canned reply after a short delay instead of calling a real provider.
type NoopProvider struct {
	delay time.Duration
}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{delay: 100 * time.Millisecond}
}

func (a *NoopProvider) Name() string { return "noop" }

func (a *NoopProvider) Complete(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return "", adapter.Usage{}, ctx.Err()
	}
	in := 0
	for _, m := range messages {
		in += len(strings.Fields(m.Content))
	}
	reply := "noop: acknowledged"
	return reply, adapter.Usage{
		PromptTokens:     in,
		CompletionTokens: len(strings.Fields(reply)),
		TotalTokens:      in + len(strings.Fields(reply)),
	}, nil
}

func (a *NoopProvider) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(strings.Fields(m.Content))
	}
	return n, nil
}
