package pipeline

import (
	"context"

	"github.com/kailas-cloud/talentrag/internal/domain"
	"github.com/kailas-cloud/talentrag/internal/domain/filter"
)

// CorpusLoader produces the documents to ingest.
type CorpusLoader interface {
	LoadFile(path string) ([]domain.Document, error)
}

// Extractor maps text to its categories.
type Extractor interface {
	Extract(ctx context.Context, text string) (domain.CategorySet, error)
}

// Index is the vector index contract.
type Index interface {
	Ensure(ctx context.Context, dim int, recreate bool) error
	Exists(ctx context.Context) (bool, error)
	Upsert(ctx context.Context, records []domain.IndexRecord) error
	WriteManifest(ctx context.Context, m domain.IndexManifest) error
	Manifest(ctx context.Context) (domain.IndexManifest, bool, error)
	Query(ctx context.Context, vector []float32, topK int, f filter.Expression) ([]domain.Match, error)
}
