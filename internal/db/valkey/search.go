package valkey

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/talentrag/internal/db"
	"github.com/kailas-cloud/talentrag/internal/domain/filter"
)

const scoreField = "__vector_score"

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// valkey-search returns the k nearest records without a guaranteed order,
// so entries are sorted by descending similarity here.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = "vector"
	}
	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.K, field)

	var queryStr string
	if filterStr := buildFilter(q.Filters); filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = "*=>" + knnPart
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		fields := append(append([]string{}, q.ReturnFields...), scoreField)
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	args = append(args, "PARAMS", "2", "BLOB", db.VectorBlob(q.Vector), "DIALECT", "2")

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	result, err := parseKNNResult(raw)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(result.Entries, func(a, b db.SearchEntry) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(result.Entries) > q.K {
		result.Entries = result.Entries[:q.K]
	}
	return result, nil
}

// SearchCount returns the number of matching records. valkey-search does not
// accept a bare "*" query, so the wildcard count comes from FT.INFO num_docs.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	if query == "*" {
		return s.numDocs(ctx, index)
	}

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0").Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func (s *Store) numDocs(ctx context.Context, index string) (int, error) {
	cmd := s.client.B().Arbitrary("FT.INFO").Args(index).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	// flat [name1, value1, name2, value2, ...]
	for i := 0; i+1 < len(raw); i += 2 {
		name, err := raw[i].ToString()
		if err != nil || name != "num_docs" {
			continue
		}
		n, err := raw[i+1].AsInt64()
		if err != nil {
			return 0, fmt.Errorf("parse num_docs: %w", err)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("FT.INFO %s: num_docs not reported", index)
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}

		// Convert __vector_score (cosine distance) to similarity
		if scoreStr, ok := entry.Fields[scoreField]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entry.Score = max(0, 1.0-d)
			}
			delete(entry.Fields, scoreField)
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

// buildFilter translates filter.Expression into an FT.SEARCH pre-filter query string.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(expr.Must()))
	for _, cond := range expr.Must() {
		parts = append(parts, fmt.Sprintf("@%s:{%s}", cond.Key(), tagEscaper.Replace(cond.Match())))
	}
	return strings.Join(parts, " ")
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
