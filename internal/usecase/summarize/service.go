// Package summarize asks the chat model for a recruiter-style synthesis of ranked candidates.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

const systemPromptTemplate = `You are a skilled talent recruiter. You have access to the resumes of the top candidates. Provide a brief summary of each candidate's resume to help your client make an informed decision. Don't skip any candidates. Talk about all the candidates you are given.

Candidates:
%s`

const historyHeader = "\n\nPrevious context:\n"

// Options configures prompt construction.
type Options struct {
	Model              string // empty uses the completer's default
	MaxTokens          int
	CandidateMaxTokens int // 0 keeps full candidate text
	HistoryTurns       int // 0 omits session history
}

// Service is the Summarizer.
type Service struct {
	llm    Completer
	trunc  Truncator
	opts   Options
	logger *zap.Logger
}

// New creates a summarizer. A nil trunc disables candidate truncation.
func New(llm Completer, trunc Truncator, opts Options, logger *zap.Logger) *Service {
	if trunc == nil {
		trunc = RuneTruncator{}
		opts.CandidateMaxTokens = 0
	}
	return &Service{llm: llm, trunc: trunc, opts: opts, logger: logger}
}

type promptCandidate struct {
	ID     int    `json:"id"`
	Resume string `json:"resume"`
}

// Summarize returns the model's discussion of every candidate for query.
// session may be nil. Failures wrap domain.ErrSummarization.
func (s *Service) Summarize(
	ctx context.Context, query string, candidates []domain.Candidate, session *domain.SessionContext,
) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("no candidates to summarize: %w", domain.ErrSummarization)
	}

	system, err := s.systemPrompt(candidates, session)
	if err != nil {
		return "", err
	}

	res, err := s.llm.Complete(ctx, domain.ChatRequest{
		Model: s.opts.Model,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: system},
			{Role: domain.RoleUser, Content: UserPrompt(query)},
		},
		MaxTokens: s.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w: %w", domain.ErrSummarization, err)
	}

	content := strings.TrimSpace(res.Content)
	if content == "" {
		return "", fmt.Errorf("summarize: empty response: %w", domain.ErrSummarization)
	}

	s.logger.Debug("Summary generated",
		zap.Int("candidates", len(candidates)),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("completion_tokens", res.CompletionTokens),
	)
	return content, nil
}

// UserPrompt is the user message sent for query.
func UserPrompt(query string) string {
	return fmt.Sprintf("Who are the top candidates for %s?", query)
}

func (s *Service) systemPrompt(candidates []domain.Candidate, session *domain.SessionContext) (string, error) {
	payload := make([]promptCandidate, len(candidates))
	for i, c := range candidates {
		payload[i] = promptCandidate{
			ID:     c.DocumentID,
			Resume: s.trunc.Truncate(c.Text, s.opts.CandidateMaxTokens),
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("encode candidates: %w: %w", domain.ErrSummarization, err)
	}

	prompt := fmt.Sprintf(systemPromptTemplate, strings.TrimSpace(buf.String()))
	if session != nil {
		if h := session.History(s.opts.HistoryTurns); h != "" {
			prompt += historyHeader + h
		}
	}
	return prompt, nil
}
