// Package embedding holds embedder decorators used by the ingestion and query paths.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/domain"
	"github.com/kailas-cloud/talentrag/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedEmbedder wraps Embedder with budget enforcement and structured logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai;
// this layer owns the budget gauge only.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. budget may be nil (unlimited).
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Embed checks the budget, delegates to the inner embedder and records usage.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := p.checkBudget(ctx, 1); err != nil {
		return domain.EmbeddingResult{}, err
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	p.recordBudget(result.TotalTokens)

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// BatchEmbed delegates through the inner batch path, falling back to one call per text.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	if err := p.checkBudget(ctx, len(texts)); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	start := time.Now()
	result, err := domain.EmbedAll(ctx, p.inner, texts)
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Batch embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Int("batch_size", len(texts)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	p.recordBudget(result.TotalTokens)

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("batch_size", len(texts)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

func (p *InstrumentedEmbedder) checkBudget(ctx context.Context, texts int) error {
	if p.budget == nil {
		return nil
	}
	if err := p.budget.Check(ctx); err != nil {
		p.logger.Error("Budget exceeded",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Int("texts", texts),
			zap.Error(err),
		)
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (p *InstrumentedEmbedder) recordBudget(totalTokens int) {
	if p.budget == nil || totalTokens <= 0 {
		return
	}
	p.budget.Record(int64(totalTokens))
	remaining := metrics.EmbeddingBudgetTokensRemaining
	remaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
	remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
}
