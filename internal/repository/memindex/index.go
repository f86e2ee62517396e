// Package memindex is an in-process vector index with the same contract as
// the Redis-backed one. It is used for local runs without a search server and in tests.
package memindex

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"

	"github.com/kailas-cloud/talentrag/internal/domain"
	"github.com/kailas-cloud/talentrag/internal/domain/filter"
)

// Index stores records in insertion order and answers queries by brute-force cosine similarity.
type Index struct {
	mu      sync.RWMutex
	dim     int
	records []domain.IndexRecord
	pos     map[string]int

	manifest *domain.IndexManifest
}

// New creates an empty index.
func New() *Index {
	return &Index{pos: make(map[string]int)}
}

// Ensure fixes the vector dimension. recreate discards stored records and the manifest.
func (x *Index) Ensure(_ context.Context, dim int, recreate bool) error {
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d: %w", dim, domain.ErrVectorDimMismatch)
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if recreate || x.dim != dim {
		x.records = nil
		x.pos = make(map[string]int)
		x.manifest = nil
	}
	x.dim = dim
	return nil
}

// Exists reports whether the index holds at least one record.
func (x *Index) Exists(_ context.Context) (bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records) > 0, nil
}

// WriteManifest stores how the index was populated.
func (x *Index) WriteManifest(_ context.Context, m domain.IndexManifest) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.manifest = &m
	return nil
}

// Manifest returns the stored manifest. ok is false when none was written.
func (x *Index) Manifest(_ context.Context) (domain.IndexManifest, bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.manifest == nil {
		return domain.IndexManifest{}, false, nil
	}
	return *x.manifest, true, nil
}

// Upsert inserts or replaces records by ID. A record with a wrong-sized vector
// fails the call with the count of records written before it.
func (x *Index) Upsert(_ context.Context, records []domain.IndexRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i := range records {
		r := records[i]
		if x.dim != 0 && len(r.Vector) != x.dim {
			err := fmt.Errorf("record %s has %d components, index expects %d: %w",
				r.ID, len(r.Vector), x.dim, domain.ErrVectorDimMismatch)
			return domain.NewIndexWriteError(i, len(records), err)
		}
		r.Vector = slices.Clone(r.Vector)
		if p, ok := x.pos[r.ID]; ok {
			x.records[p] = r
			continue
		}
		x.pos[r.ID] = len(x.records)
		x.records = append(x.records, r)
	}
	return nil
}

type scored struct {
	rec   *domain.IndexRecord
	score float64
}

// Query returns up to topK records matching f, by descending cosine similarity.
// Equal scores keep insertion order.
func (x *Index) Query(_ context.Context, vector []float32, topK int, f filter.Expression) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.dim != 0 && len(vector) != x.dim {
		return nil, fmt.Errorf("query has %d components, index expects %d: %w",
			len(vector), x.dim, domain.ErrVectorDimMismatch)
	}

	hits := make([]scored, 0, len(x.records))
	for i := range x.records {
		r := &x.records[i]
		if !f.Matches(metadataFields(r.Metadata)) {
			continue
		}
		hits = append(hits, scored{rec: r, score: max(0, cosine(vector, r.Vector))})
	}

	slices.SortStableFunc(hits, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]domain.Match, len(hits))
	for i, h := range hits {
		out[i] = domain.Match{Metadata: h.rec.Metadata, Score: h.score}
	}
	return out, nil
}

func metadataFields(m domain.RecordMetadata) map[string]string {
	return map[string]string{
		"doc_id":             strconv.Itoa(m.DocumentID),
		filter.FieldCategory: string(m.Category),
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
