package session

import (
	"context"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

// Matcher runs the query path of one cycle.
type Matcher interface {
	Match(ctx context.Context, query string, observe domain.StateObserver) ([]domain.Candidate, error)
}

// Summarizer turns ranked candidates into a recruiter-facing answer.
type Summarizer interface {
	Summarize(ctx context.Context, query string, candidates []domain.Candidate, session *domain.SessionContext) (string, error)
}
