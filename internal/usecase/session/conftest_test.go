package session

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

type mockMatcher struct {
	matchFn func(ctx context.Context, query string) ([]domain.Candidate, error)
	queries []string
}

// Match reports the single-vector states before delegating to matchFn.
func (m *mockMatcher) Match(ctx context.Context, query string, observe domain.StateObserver) ([]domain.Candidate, error) {
	m.queries = append(m.queries, query)
	for _, s := range []domain.State{domain.StateEmbedding, domain.StateQuerying, domain.StateRanking} {
		observe(s)
	}
	return m.matchFn(ctx, query)
}

func matching(candidates ...domain.Candidate) *mockMatcher {
	return &mockMatcher{matchFn: func(context.Context, string) ([]domain.Candidate, error) {
		return candidates, nil
	}}
}

type mockSummarizer struct {
	summarizeFn func(ctx context.Context, query string, candidates []domain.Candidate) (string, error)
	calls       int
	turnsSeen   []int
}

func (m *mockSummarizer) Summarize(
	ctx context.Context, query string, candidates []domain.Candidate, session *domain.SessionContext,
) (string, error) {
	m.calls++
	m.turnsSeen = append(m.turnsSeen, session.Len())
	if m.summarizeFn == nil {
		return fmt.Sprintf("summary of %d candidates for %s", len(candidates), query), nil
	}
	return m.summarizeFn(ctx, query, candidates)
}

func candidate(id int, score float64) domain.Candidate {
	return domain.Candidate{DocumentID: id, AggregateScore: score, Text: fmt.Sprintf("resume %d", id)}
}

func recordStates(states *[]domain.State) domain.StateObserver {
	return func(s domain.State) { *states = append(*states, s) }
}
