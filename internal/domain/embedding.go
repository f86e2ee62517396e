package domain

import (
	"context"
	"fmt"
	"math"
)

// DefaultDimensions matches text-embedding-ada-002 and text-embedding-3-small.
const DefaultDimensions = 1536

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
// Implementations return exactly one vector per input text, in input order.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchFallback calls Embed once per text for providers without native batching.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// EmbedAll vectorizes texts through BatchEmbed when the embedder supports it,
// falling back to one call per text otherwise.
func EmbedAll(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return BatchEmbeddingResult{}, nil
	}
	if be, ok := e.(BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return BatchEmbeddingResult{}, err
		}
		if len(res.Embeddings) != len(texts) {
			return BatchEmbeddingResult{}, fmt.Errorf(
				"batch returned %d vectors for %d texts: %w",
				len(res.Embeddings), len(texts), ErrEmbeddingService,
			)
		}
		return res, nil
	}
	return BatchFallback(ctx, e, texts)
}

// PadVector returns a copy of v right-padded with zeros to dim.
// Empty vectors, longer vectors and vectors with NaN or Inf components are rejected.
func PadVector(v []float32, dim int) ([]float32, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d: %w", dim, ErrVectorDimMismatch)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("empty vector: %w", ErrEmbeddingService)
	}
	if len(v) > dim {
		return nil, fmt.Errorf("vector has %d components, index expects %d: %w", len(v), dim, ErrVectorDimMismatch)
	}
	for i, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, fmt.Errorf("vector component %d is not finite: %w", i, ErrEmbeddingService)
		}
	}

	out := make([]float32, dim)
	copy(out, v)
	return out, nil
}
