package extract

import (
	"context"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

// Completer sends chat completions with an optional response schema.
type Completer interface {
	Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error)
}
