// Package rank turns index matches into ranked candidates.
package rank

import (
	"slices"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

// DefaultLimit is the number of candidates kept by Aggregate.
const DefaultLimit = 10

// Strategy folds a document's per-category scores into one aggregate score.
// Scores are in category query order; categories without a match are absent.
type Strategy func(scores []float64) float64

// Sum adds the per-category scores.
func Sum(scores []float64) float64 {
	var total float64
	for _, s := range scores {
		total += s
	}
	return total
}

// Mean averages the scores of the categories that matched.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return Sum(scores) / float64(len(scores))
}

// Max keeps the best category score.
func Max(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return slices.Max(scores)
}

// Threshold keeps matches scoring strictly above t, in input order, capped at topK.
// A match scoring exactly t is dropped.
func Threshold(matches []domain.Match, t float64, topK int) []domain.Candidate {
	out := make([]domain.Candidate, 0, min(len(matches), max(topK, 0)))
	for _, m := range matches {
		if len(out) >= topK {
			break
		}
		if m.Score > t {
			out = append(out, domain.Candidate{
				DocumentID:     m.Metadata.DocumentID,
				AggregateScore: m.Score,
				Text:           m.Metadata.Text,
			})
		}
	}
	return out
}

// Aggregate merges per-category match lists by document id, scores every document with
// strategy (Sum when nil) and returns the best limit candidates by descending score.
// Equal scores keep discovery order: category order first, then index order.
func Aggregate(perCategory [][]domain.Match, strategy Strategy, limit int) []domain.Candidate {
	if strategy == nil {
		strategy = Sum
	}

	type scored struct {
		cand   domain.Candidate
		scores []float64
	}

	byDoc := make(map[int]*scored)
	order := make([]*scored, 0)
	for _, matches := range perCategory {
		for _, m := range matches {
			id := m.Metadata.DocumentID
			s, ok := byDoc[id]
			if !ok {
				s = &scored{cand: domain.Candidate{DocumentID: id, Text: m.Metadata.Text}}
				byDoc[id] = s
				order = append(order, s)
			}
			s.scores = append(s.scores, m.Score)
		}
	}

	candidates := make([]domain.Candidate, len(order))
	for i, s := range order {
		s.cand.AggregateScore = strategy(s.scores)
		candidates[i] = s.cand
	}

	slices.SortStableFunc(candidates, func(a, b domain.Candidate) int {
		switch {
		case a.AggregateScore > b.AggregateScore:
			return -1
		case a.AggregateScore < b.AggregateScore:
			return 1
		default:
			return 0
		}
	})

	if limit = max(limit, 0); len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
