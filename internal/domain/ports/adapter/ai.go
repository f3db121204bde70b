package adapter

import "context"

// Message mirrors the chat-completion wire shape shared by providers.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIProvider is the opaque upstream boundary for AI work. Implementations
// may return domain.ErrProviderRateLimited / ErrProviderUnavailable for
// transient failures the dispatcher should retry.
type AIProvider interface {
	Name() string
	Complete(ctx context.Context, model string, messages []Message) (string, Usage, error)
	CountTokens(ctx context.Context, model string, messages []Message) (int, error)
}
