// Package corpus loads the resume table (CSV or Parquet) into deduplicated, shuffled, subsampled documents.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

// Options controls document construction and sampling.
type Options struct {
	TextColumn string
	// Columns switches documents to "<col>: <value>" pairs joined by ". ".
	Columns  []string
	Fraction float64
	Seed     int64 // 0 = random order on every load
}

// Loader reads a tabular corpus.
type Loader struct {
	opts   Options
	logger *zap.Logger
}

// New creates a Loader.
func New(opts Options, logger *zap.Logger) *Loader {
	return &Loader{opts: opts, logger: logger}
}

// LoadFile opens path and loads it. Files with a .parquet extension are read
// as Parquet, everything else as CSV.
func (l *Loader) LoadFile(path string) ([]domain.Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w: %w", path, domain.ErrData, err)
	}
	defer f.Close()

	var docs []domain.Document
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		docs, err = l.loadParquet(f)
	} else {
		docs, err = l.Load(f)
	}
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	return docs, nil
}

// Load reads CSV rows from r, keeps the first row for every distinct document text,
// shuffles and keeps floor(n * fraction) documents with IDs 1..k in output order.
// An empty result after sampling is not an error.
func (l *Loader) Load(r io.Reader) ([]domain.Document, error) {
	if err := l.checkFraction(); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty source: %w", domain.ErrData)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w: %w", domain.ErrData, err)
	}

	line := 1
	return l.collect(header, func() ([]string, error) {
		line++
		row, err := cr.Read()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read row %d: %w: %w", line, domain.ErrData, err)
		}
		return row, err
	})
}

func (l *Loader) checkFraction() error {
	if l.opts.Fraction <= 0 || l.opts.Fraction > 1 {
		return fmt.Errorf("fraction must be in (0, 1], got %g: %w", l.opts.Fraction, domain.ErrData)
	}
	return nil
}

// collect pulls rows until next returns io.EOF and turns them into documents.
func (l *Loader) collect(header []string, next func() ([]string, error)) ([]domain.Document, error) {
	idx, err := l.columnIndex(header)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var texts []string
	for {
		row, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		text := l.documentText(row, idx)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		texts = append(texts, text)
	}

	if len(texts) == 0 {
		return nil, fmt.Errorf("no documents after deduplication: %w", domain.ErrData)
	}

	l.shuffle(texts)
	n := int(math.Floor(float64(len(texts)) * l.opts.Fraction))

	docs := make([]domain.Document, n)
	for i := range n {
		docs[i] = domain.Document{ID: i + 1, Text: texts[i]}
	}

	l.logger.Info("Corpus loaded",
		zap.Int("unique", len(texts)),
		zap.Int("sampled", n),
		zap.Float64("fraction", l.opts.Fraction),
	)
	return docs, nil
}

// columnIndex maps every required column to its position in header.
func (l *Loader) columnIndex(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	required := append([]string{l.opts.TextColumn}, l.opts.Columns...)
	idx := make(map[string]int, len(required))
	for _, c := range required {
		i, ok := pos[c]
		if !ok {
			return nil, fmt.Errorf("missing column %q: %w", c, domain.ErrData)
		}
		idx[c] = i
	}
	return idx, nil
}

func (l *Loader) documentText(row []string, idx map[string]int) string {
	if len(l.opts.Columns) == 0 {
		return cell(row, idx[l.opts.TextColumn])
	}
	parts := make([]string, len(l.opts.Columns))
	for i, c := range l.opts.Columns {
		parts[i] = c + ": " + cell(row, idx[c])
	}
	return strings.Join(parts, ". ")
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func (l *Loader) shuffle(texts []string) {
	swap := func(i, j int) { texts[i], texts[j] = texts[j], texts[i] }
	if l.opts.Seed == 0 {
		rand.Shuffle(len(texts), swap)
		return
	}
	seed := uint64(l.opts.Seed) //nolint:gosec // seed bits only
	rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Shuffle(len(texts), swap)
}
