package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/domain"
	"github.com/kailas-cloud/talentrag/internal/domain/filter"
)

type mockCorpus struct {
	loadFn func(path string) ([]domain.Document, error)
}

func (m *mockCorpus) LoadFile(path string) ([]domain.Document, error) {
	return m.loadFn(path)
}

func corpusOf(docs ...domain.Document) *mockCorpus {
	return &mockCorpus{loadFn: func(string) ([]domain.Document, error) { return docs, nil }}
}

// mockEmbedder maps known texts to fixed vectors.
type mockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	v, ok := m.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("no vector for %q: %w", text, domain.ErrEmbeddingService)
	}
	return domain.EmbeddingResult{Embedding: v, TotalTokens: 1}, nil
}

type mockExtractor struct {
	extractFn func(ctx context.Context, text string) (domain.CategorySet, error)
}

func (m *mockExtractor) Extract(ctx context.Context, text string) (domain.CategorySet, error) {
	return m.extractFn(ctx, text)
}

type mockIndex struct {
	ensureFn func(ctx context.Context, dim int, recreate bool) error
	existsFn func(ctx context.Context) (bool, error)
	upsertFn func(ctx context.Context, records []domain.IndexRecord) error
	writeFn  func(ctx context.Context, m domain.IndexManifest) error
	readFn   func(ctx context.Context) (domain.IndexManifest, bool, error)
	queryFn  func(ctx context.Context, vector []float32, topK int, f filter.Expression) ([]domain.Match, error)
}

func (m *mockIndex) Ensure(ctx context.Context, dim int, recreate bool) error {
	if m.ensureFn == nil {
		return nil
	}
	return m.ensureFn(ctx, dim, recreate)
}

func (m *mockIndex) Exists(ctx context.Context) (bool, error) {
	if m.existsFn == nil {
		return true, nil
	}
	return m.existsFn(ctx)
}

func (m *mockIndex) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if m.upsertFn == nil {
		return nil
	}
	return m.upsertFn(ctx, records)
}

func (m *mockIndex) WriteManifest(ctx context.Context, mf domain.IndexManifest) error {
	if m.writeFn == nil {
		return nil
	}
	return m.writeFn(ctx, mf)
}

func (m *mockIndex) Manifest(ctx context.Context) (domain.IndexManifest, bool, error) {
	if m.readFn == nil {
		return domain.IndexManifest{}, false, nil
	}
	return m.readFn(ctx)
}

func (m *mockIndex) Query(ctx context.Context, vector []float32, topK int, f filter.Expression) ([]domain.Match, error) {
	if m.queryFn == nil {
		return nil, nil
	}
	return m.queryFn(ctx, vector, topK, f)
}

func newTestService(corpus CorpusLoader, emb domain.Embedder, ext Extractor, idx Index, opts Options) *Service {
	if opts.Mode == "" {
		opts.Mode = ModeSingle
	}
	if opts.Dimensions == 0 {
		opts.Dimensions = 4
	}
	if opts.Threshold == 0 {
		opts.Threshold = 0.75
	}
	s, err := New(corpus, emb, ext, idx, opts, zap.NewNop())
	if err != nil {
		panic(err)
	}
	return s
}

func match(id int, score float64) domain.Match {
	return domain.Match{Metadata: domain.RecordMetadata{DocumentID: id, Text: fmt.Sprintf("resume %d", id)}, Score: score}
}

func recordStates(states *[]domain.State) domain.StateObserver {
	return func(s domain.State) { *states = append(*states, s) }
}
