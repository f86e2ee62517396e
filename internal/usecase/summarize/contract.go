package summarize

import (
	"context"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

// Completer sends chat completions.
type Completer interface {
	Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error)
}

// Truncator bounds text to a token budget.
type Truncator interface {
	Truncate(text string, maxTokens int) string
}
