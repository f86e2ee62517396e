package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

type mockCompleter struct {
	completeFn func(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error)
	requests   []domain.ChatRequest
}

func (m *mockCompleter) Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	m.requests = append(m.requests, req)
	return m.completeFn(ctx, req)
}

func replying(content string) *mockCompleter {
	return &mockCompleter{
		completeFn: func(context.Context, domain.ChatRequest) (domain.ChatResult, error) {
			return domain.ChatResult{Content: content}, nil
		},
	}
}

func newTestService(llm Completer) *Service {
	s, err := New(llm, "gpt-4o-mini", zap.NewNop())
	if err != nil {
		panic(err)
	}
	return s
}
