package ai

import (
	"context"
	"strings"

	"classroom-ai-platform/internal/domain/ports/adapter"
)

var _ adapter.AIProvider = (*MultiProvider)(nil)

// MultiProvider routes each call to a concrete provider by model name.
type MultiProvider struct {
	defaultProvider string // e.g. "openai" or "gemini"
	byProvider      map[string]adapter.AIProvider
	modelToProvider map[string]string // model -> provider name
}

// NewMultiProvider does not inject any default model; it only knows a default
// provider. Each provider adapter is responsible for its own default model.
func NewMultiProvider(
	defaultProvider string,
	byProvider map[string]adapter.AIProvider,
	modelToProvider map[string]string,
) *MultiProvider {
	return &MultiProvider{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
	}
}

func (m *MultiProvider) Name() string { return "multi" }

func (m *MultiProvider) resolveProvider(model string) string {
	if p := m.modelToProvider[model]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"):
		return "openai"
	default:
		return m.defaultProvider
	}
}

func (m *MultiProvider) pick(model string) adapter.AIProvider {
	prov := m.resolveProvider(model)
	if a := m.byProvider[prov]; a != nil {
		return a
	}
	// last resort: first available
	for _, a := range m.byProvider {
		if a != nil {
			return a
		}
	}
	return nil
}

func (m *MultiProvider) Complete(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	a := m.pick(model)
	if a == nil {
		return "", adapter.Usage{}, nil
	}
	return a.Complete(ctx, model, messages)
}

func (m *MultiProvider) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	a := m.pick(model)
	if a == nil {
		return 0, nil
	}
	return a.CountTokens(ctx, model, messages)
}
