// Package usage builds embedding usage reports from the budget tracker.
package usage

import (
	"context"
	"math"
	"time"

	domusage "github.com/kailas-cloud/talentrag/internal/domain/usage"
)

// Options labels reports and prices tokens.
type Options struct {
	Provider             string
	Model                string
	CostPerMillionTokens float64
}

// Service handles usage reporting.
type Service struct {
	br   BudgetReader
	opts Options
	now  func() time.Time
}

// New creates a Service. br can be nil (unlimited, nothing tracked).
func New(br BudgetReader, opts Options) *Service {
	return &Service{br: br, opts: opts, now: func() time.Time { return time.Now().UTC() }}
}

// GetReport builds a usage report for the given period. The total period
// has no boundaries and reports the monthly counters.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now()
	r := domusage.Report{Period: period, Provider: s.opts.Provider, Model: s.opts.Model}

	var limit, used, remaining int64
	switch period {
	case domusage.PeriodDay:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		r.PeriodStart, r.PeriodEnd = start.UnixMilli(), start.Add(24*time.Hour).UnixMilli()
		if s.br != nil {
			limit, used, remaining = s.br.DailyLimit(), s.br.DailyUsed(), s.br.RemainingDaily()
		}
	default:
		if period == domusage.PeriodMonth {
			start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			r.PeriodStart, r.PeriodEnd = start.UnixMilli(), start.AddDate(0, 1, 0).UnixMilli()
		}
		if s.br != nil {
			limit, used, remaining = s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly()
		}
	}

	if s.br == nil {
		remaining = -1
	} else {
		r.Requests = s.br.Requests()
	}
	r.Tokens = used
	r.CostMillidollars = int64(math.Round(float64(used) * s.opts.CostPerMillionTokens / 1000))
	r.Budget = domusage.Budget{
		Limit:     limit,
		Remaining: remaining,
		Exhausted: limit > 0 && remaining <= 0,
		ResetsAt:  r.PeriodEnd,
	}
	return r
}
