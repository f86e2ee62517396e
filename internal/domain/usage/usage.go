// Package usage describes embedding token consumption reports.
package usage

import "fmt"

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod maps a query value to a Period. Empty defaults to PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodMonth, PeriodTotal:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q: want %q, %q or %q", s, PeriodDay, PeriodMonth, PeriodTotal)
	}
}

// Budget is a point-in-time view of one token budget.
// Limit 0 means unlimited; Remaining is then -1.
type Budget struct {
	Limit     int64 `json:"tokens_limit"`
	Remaining int64 `json:"tokens_remaining"`
	Exhausted bool  `json:"is_exhausted"`
	ResetsAt  int64 `json:"resets_at,omitempty"` // unix millis
}

// Report is embedding usage for one period.
type Report struct {
	Period           Period `json:"period"`
	PeriodStart      int64  `json:"period_start,omitempty"` // unix millis
	PeriodEnd        int64  `json:"period_end,omitempty"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Requests         int64  `json:"embedding_requests"` // since process start
	Tokens           int64  `json:"tokens"`
	CostMillidollars int64  `json:"cost_millidollars"`
	Budget           Budget `json:"budget"`
}
