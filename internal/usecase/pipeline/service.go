// Package pipeline wires loading, extraction, embedding and indexing into the
// one-time ingestion path and the per-query matching path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/domain"
	"github.com/kailas-cloud/talentrag/internal/domain/filter"
	"github.com/kailas-cloud/talentrag/internal/logger"
	"github.com/kailas-cloud/talentrag/internal/metrics"
	"github.com/kailas-cloud/talentrag/internal/usecase/rank"
)

// Modes.
const (
	ModeSingle   = "single"
	ModeCategory = "category"
)

// Options configures both paths.
type Options struct {
	Mode          string
	CorpusPath    string
	Dimensions    int
	TopK          int
	Threshold     float64 // single mode only
	MaxCandidates int     // category mode only
	Strategy      rank.Strategy
}

// IngestReport summarizes a finished ingestion.
type IngestReport struct {
	Documents int
	Records   int
}

// Service runs ingestion once and query cycles afterwards.
// Ingestion holds the lock exclusively, so no query cycle overlaps it.
type Service struct {
	corpus    CorpusLoader
	embedder  domain.Embedder
	extractor Extractor
	index     Index
	opts      Options
	logger    *zap.Logger

	mu       sync.RWMutex
	ingested bool // an ingestion has been attempted
	ready    bool // the index is populated
}

// New creates a pipeline. extractor may be nil in single mode.
func New(
	corpus CorpusLoader, embedder domain.Embedder, extractor Extractor, index Index,
	opts Options, logger *zap.Logger,
) (*Service, error) {
	switch opts.Mode {
	case ModeSingle:
	case ModeCategory:
		if extractor == nil {
			return nil, errors.New("category mode requires an extractor")
		}
	default:
		return nil, fmt.Errorf("unknown pipeline mode %q", opts.Mode)
	}
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", opts.Dimensions)
	}
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = rank.DefaultLimit
	}
	if opts.Strategy == nil {
		opts.Strategy = rank.Sum
	}
	return &Service{
		corpus:    corpus,
		embedder:  embedder,
		extractor: extractor,
		index:     index,
		opts:      opts,
		logger:    logger,
	}, nil
}

// Mode returns the configured pipeline mode.
func (s *Service) Mode() string { return s.opts.Mode }

// Ingest loads the corpus, embeds it and writes it to the index.
// Records of earlier runs are dropped first, so the index only ever holds the
// current sample in the current mode.
// It runs at most once per Service; later calls fail with domain.ErrAlreadyIngested.
// Any error leaves the service unusable for queries.
func (s *Service) Ingest(ctx context.Context) (IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ingested {
		return IngestReport{}, domain.ErrAlreadyIngested
	}
	s.ingested = true

	docs, err := s.corpus.LoadFile(s.opts.CorpusPath)
	if err != nil {
		return IngestReport{}, fmt.Errorf("load corpus: %w", err)
	}
	if len(docs) == 0 {
		return IngestReport{}, fmt.Errorf("corpus sample is empty: %w", domain.ErrData)
	}

	var records []domain.IndexRecord
	if s.opts.Mode == ModeCategory {
		records, err = s.categoryRecords(ctx, docs)
	} else {
		records, err = s.documentRecords(ctx, docs)
	}
	if err != nil {
		return IngestReport{}, err
	}

	if err := s.index.Ensure(ctx, s.opts.Dimensions, true); err != nil {
		return IngestReport{}, fmt.Errorf("ensure index: %w", err)
	}
	manifest := domain.IndexManifest{Mode: s.opts.Mode, Dimensions: s.opts.Dimensions, Documents: len(docs)}
	if err := s.index.WriteManifest(ctx, manifest); err != nil {
		return IngestReport{}, fmt.Errorf("write manifest: %w", err)
	}
	if err := s.index.Upsert(ctx, records); err != nil {
		return IngestReport{}, fmt.Errorf("upsert records: %w", err)
	}

	metrics.IngestedRecordsTotal.Add(float64(len(records)))
	s.ready = true

	s.logger.Info("Ingestion completed",
		zap.String("mode", s.opts.Mode),
		zap.Int("documents", len(docs)),
		zap.Int("records", len(records)),
	)
	return IngestReport{Documents: len(docs), Records: len(records)}, nil
}

// Attach marks an already populated index as ready without ingesting.
// An index populated in another mode or dimension is refused with domain.ErrIndexLayout.
func (s *Service) Attach(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.index.Exists(ctx)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	if !ok {
		return fmt.Errorf("attach: index is missing or empty: %w", domain.ErrNotIngested)
	}

	m, found, err := s.index.Manifest(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("attach: %w", err)
	case !found:
		s.logger.Warn("Index has no manifest, assuming it matches the pipeline mode",
			zap.String("mode", s.opts.Mode))
	case m.Mode != s.opts.Mode || m.Dimensions != s.opts.Dimensions:
		return fmt.Errorf("attach: index holds %s records of %d dimensions, pipeline runs %s with %d: %w",
			m.Mode, m.Dimensions, s.opts.Mode, s.opts.Dimensions, domain.ErrIndexLayout)
	}
	s.ready = true
	return nil
}

func (s *Service) documentRecords(ctx context.Context, docs []domain.Document) ([]domain.IndexRecord, error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	records := make([]domain.IndexRecord, len(docs))
	for i, d := range docs {
		records[i] = domain.IndexRecord{
			ID:       domain.RecordID(d.ID),
			Vector:   vectors[i],
			Metadata: domain.RecordMetadata{DocumentID: d.ID, Text: d.Text},
		}
	}
	return records, nil
}

func (s *Service) categoryRecords(ctx context.Context, docs []domain.Document) ([]domain.IndexRecord, error) {
	var (
		texts   []string
		records []domain.IndexRecord
	)
	for _, d := range docs {
		set, err := s.extractor.Extract(ctx, d.Text)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", d.ID, err)
		}
		for _, c := range domain.Categories() {
			text := set.Text(c)
			if text == "" {
				continue
			}
			texts = append(texts, text)
			records = append(records, domain.IndexRecord{
				ID: domain.CategoryRecordID(d.ID, c),
				Metadata: domain.RecordMetadata{
					DocumentID: d.ID,
					Text:       d.Text,
					Category:   c,
					Content:    text,
				},
			})
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no categories extracted from %d documents: %w", len(docs), domain.ErrData)
	}

	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Vector = vectors[i]
	}
	return records, nil
}

// embedAll vectorizes texts and brings every vector to the configured dimension.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := domain.EmbedAll(ctx, s.embedder, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	out := make([][]float32, len(res.Embeddings))
	for i, v := range res.Embeddings {
		if out[i], err = domain.PadVector(v, s.opts.Dimensions); err != nil {
			return nil, fmt.Errorf("embed corpus [%d]: %w", i, err)
		}
	}
	return out, nil
}

// Match runs one query cycle up to ranking. An empty result means no relevant
// candidates and is not an error. observe may be nil.
func (s *Service) Match(ctx context.Context, query string, observe domain.StateObserver) ([]domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return nil, domain.ErrNotIngested
	}
	if observe == nil {
		observe = func(domain.State) {}
	}

	var (
		candidates []domain.Candidate
		err        error
	)
	if s.opts.Mode == ModeCategory {
		candidates, err = s.matchCategories(ctx, query, observe)
	} else {
		candidates, err = s.matchSingle(ctx, query, observe)
	}
	if err != nil {
		return nil, err
	}

	metrics.CandidatesPerCycle.WithLabelValues(s.opts.Mode).Observe(float64(len(candidates)))
	logger.FromContext(ctx).Debug("Query matched",
		zap.String("mode", s.opts.Mode),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

func (s *Service) matchSingle(ctx context.Context, query string, observe domain.StateObserver) ([]domain.Candidate, error) {
	observe(domain.StateEmbedding)
	vec, err := s.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	observe(domain.StateQuerying)
	matches, err := s.index.Query(ctx, vec, s.opts.TopK, filter.Expression{})
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	observe(domain.StateRanking)
	return rank.Threshold(matches, s.opts.Threshold, s.opts.TopK), nil
}

func (s *Service) matchCategories(ctx context.Context, query string, observe domain.StateObserver) ([]domain.Candidate, error) {
	observe(domain.StateExtracting)
	set, err := s.extractor.Extract(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("extract query: %w", err)
	}

	observe(domain.StateEmbedding)
	var (
		cats  []domain.Category
		texts []string
	)
	for _, c := range domain.Categories() {
		if text := set.Text(c); text != "" {
			cats = append(cats, c)
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		observe(domain.StateRanking)
		return nil, nil
	}

	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	observe(domain.StateQuerying)
	perCategory := make([][]domain.Match, len(cats))
	for i, c := range cats {
		f, err := filter.Category(string(c))
		if err != nil {
			return nil, err
		}
		if perCategory[i], err = s.index.Query(ctx, vectors[i], s.opts.TopK, f); err != nil {
			return nil, fmt.Errorf("query %s: %w", c, err)
		}
	}

	observe(domain.StateRanking)
	return rank.Aggregate(perCategory, s.opts.Strategy, s.opts.MaxCandidates), nil
}

func (s *Service) queryVector(ctx context.Context, query string) ([]float32, error) {
	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec, err := domain.PadVector(res.Embedding, s.opts.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}
