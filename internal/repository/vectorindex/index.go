// Package vectorindex stores IndexRecords in a Redis search index and runs
// filtered KNN queries against it.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/db"
	"github.com/kailas-cloud/talentrag/internal/domain"
	"github.com/kailas-cloud/talentrag/internal/domain/filter"
)

// Hash field names of a stored record.
const (
	fieldDocID    = "doc_id"
	fieldText     = "text"
	fieldCategory = filter.FieldCategory
	fieldContent  = "content"
	fieldVector   = "vector"
)

// Manifest hash fields.
const (
	manifestMode       = "mode"
	manifestDimensions = "dimensions"
	manifestDocuments  = "documents"
)

// DefaultBatchSize bounds the number of records per pipelined write.
const DefaultBatchSize = 100

// store is the consumer interface for index operations (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Options configures index identity and write batching.
type Options struct {
	Name            string // FT index name
	KeyPrefix       string // namespace for record keys, e.g. "talentrag:"
	BatchSize       int
	HNSWM           int
	HNSWEFConstruct int
}

// Client implements the vector index contract over a db.Store.
type Client struct {
	store  store
	opts   Options
	ops    *prometheus.CounterVec
	logger *zap.Logger
}

// New creates an index client. ops is a counter vec with labels "op" and "status", may be nil.
func New(s store, opts Options, ops *prometheus.CounterVec, logger *zap.Logger) *Client {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Client{store: s, opts: opts, ops: ops, logger: logger}
}

// Name returns the index name.
func (c *Client) Name() string { return c.opts.Name }

func (c *Client) recordPrefix() string {
	return c.opts.KeyPrefix + c.opts.Name + ":"
}

func (c *Client) recordKey(id string) string {
	return c.recordPrefix() + id
}

// manifestKey lives outside the record prefix so the manifest is never indexed.
func (c *Client) manifestKey() string {
	return c.opts.KeyPrefix + "manifest:" + c.opts.Name
}

// Ensure creates the index for dim-sized vectors when it does not exist.
// With recreate, an existing index is dropped together with its records first.
func (c *Client) Ensure(ctx context.Context, dim int, recreate bool) error {
	if recreate {
		err := c.store.DropIndex(ctx, c.opts.Name, true)
		if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			c.observe("drop", err)
			return fmt.Errorf("drop index %s: %w: %w", c.opts.Name, domain.ErrIndexUnavailable, err)
		}
		if err == nil {
			c.logger.Info("Dropped existing index", zap.String("index", c.opts.Name))
		}
	}

	def, err := db.NewIndex(c.opts.Name).
		Prefix(c.recordPrefix()).
		Numeric(fieldDocID).
		Tag(fieldCategory).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, c.opts.HNSWM, c.opts.HNSWEFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	err = c.store.CreateIndex(ctx, def)
	switch {
	case errors.Is(err, db.ErrIndexExists):
		c.logger.Debug("Index already exists", zap.String("index", c.opts.Name))
		return nil
	case err != nil:
		c.observe("create", err)
		return fmt.Errorf("create index %s: %w: %w", c.opts.Name, domain.ErrIndexUnavailable, err)
	}

	c.observe("create", nil)
	c.logger.Info("Created index", zap.String("index", c.opts.Name), zap.Int("dimensions", dim))
	return nil
}

// Exists reports whether the index exists and holds at least one record.
func (c *Client) Exists(ctx context.Context) (bool, error) {
	ok, err := c.store.IndexExists(ctx, c.opts.Name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w: %w", c.opts.Name, domain.ErrIndexUnavailable, err)
	}
	if !ok {
		return false, nil
	}
	n, err := c.store.SearchCount(ctx, c.opts.Name, "*")
	if err != nil {
		return false, fmt.Errorf("count index %s: %w: %w", c.opts.Name, domain.ErrIndexUnavailable, err)
	}
	return n > 0, nil
}

// WriteManifest stores how the index was populated.
func (c *Client) WriteManifest(ctx context.Context, m domain.IndexManifest) error {
	err := c.store.HSetMulti(ctx, []db.HashSetItem{{
		Key: c.manifestKey(),
		Fields: map[string]string{
			manifestMode:       m.Mode,
			manifestDimensions: strconv.Itoa(m.Dimensions),
			manifestDocuments:  strconv.Itoa(m.Documents),
		},
	}})
	c.observe("manifest_write", err)
	if err != nil {
		return fmt.Errorf("write manifest %s: %w: %w", c.opts.Name, domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Manifest returns the stored manifest. ok is false when none was written.
func (c *Client) Manifest(ctx context.Context) (m domain.IndexManifest, ok bool, err error) {
	fields, err := c.store.HGetAll(ctx, c.manifestKey())
	c.observe("manifest_read", err)
	if err != nil {
		return m, false, fmt.Errorf("read manifest %s: %w: %w", c.opts.Name, domain.ErrIndexUnavailable, err)
	}
	if len(fields) == 0 {
		return m, false, nil
	}

	m.Mode = fields[manifestMode]
	if m.Dimensions, err = strconv.Atoi(fields[manifestDimensions]); err != nil {
		return m, false, fmt.Errorf("manifest %s: invalid %s %q: %w",
			c.opts.Name, manifestDimensions, fields[manifestDimensions], domain.ErrIndexLayout)
	}
	if m.Documents, err = strconv.Atoi(fields[manifestDocuments]); err != nil {
		return m, false, fmt.Errorf("manifest %s: invalid %s %q: %w",
			c.opts.Name, manifestDocuments, fields[manifestDocuments], domain.ErrIndexLayout)
	}
	return m, true, nil
}

// Upsert writes records in batches of Options.BatchSize, one round-trip per batch.
// A failing batch stops the upsert; earlier batches stay committed and are
// reported through *domain.IndexWriteError.
func (c *Client) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	flushed := 0
	for start := 0; start < len(records); start += c.opts.BatchSize {
		end := min(start+c.opts.BatchSize, len(records))
		batch := records[start:end]

		items := make([]db.HashSetItem, len(batch))
		for i := range batch {
			items[i] = db.HashSetItem{
				Key:    c.recordKey(batch[i].ID),
				Fields: recordFields(&batch[i]),
			}
		}

		if err := c.store.HSetMulti(ctx, items); err != nil {
			c.observe("upsert", err)
			return domain.NewIndexWriteError(flushed, len(records), err)
		}
		flushed += len(batch)
		c.observe("upsert", nil)
		c.logger.Debug("Upserted batch",
			zap.String("index", c.opts.Name),
			zap.Int("flushed", flushed),
			zap.Int("total", len(records)),
		)
	}
	return nil
}

// Query returns at most topK matches ordered by descending score as reported by the index.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, f filter.Expression) ([]domain.Match, error) {
	sr, err := c.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    c.opts.Name,
		VectorField:  fieldVector,
		Filters:      f,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{fieldDocID, fieldText, fieldCategory, fieldContent},
	})
	if err != nil {
		c.observe("query", err)
		return nil, fmt.Errorf("query index %s: %w: %w", c.opts.Name, domain.ErrIndexUnavailable, err)
	}
	c.observe("query", nil)

	matches := make([]domain.Match, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		m, err := parseMatch(e)
		if err != nil {
			return nil, fmt.Errorf("query index %s: %w: %w", c.opts.Name, domain.ErrIndexUnavailable, err)
		}
		matches = append(matches, m)
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (c *Client) observe(op string, err error) {
	if c.ops == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.ops.WithLabelValues(op, status).Inc()
}

func recordFields(r *domain.IndexRecord) map[string]string {
	fields := map[string]string{
		fieldDocID:  strconv.Itoa(r.Metadata.DocumentID),
		fieldText:   r.Metadata.Text,
		fieldVector: db.VectorBlob(r.Vector),
	}
	if r.Metadata.Category != "" {
		fields[fieldCategory] = string(r.Metadata.Category)
		fields[fieldContent] = r.Metadata.Content
	}
	return fields
}

func parseMatch(e db.SearchEntry) (domain.Match, error) {
	raw, ok := e.Fields[fieldDocID]
	if !ok {
		return domain.Match{}, fmt.Errorf("record %s has no %s", e.Key, fieldDocID)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return domain.Match{}, fmt.Errorf("record %s: invalid %s %q", e.Key, fieldDocID, raw)
	}
	return domain.Match{
		Metadata: domain.RecordMetadata{
			DocumentID: id,
			Text:       e.Fields[fieldText],
			Category:   domain.Category(e.Fields[fieldCategory]),
			Content:    e.Fields[fieldContent],
		},
		Score: e.Score,
	}, nil
}
