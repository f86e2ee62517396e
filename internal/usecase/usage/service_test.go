package usage

import (
	"context"
	"testing"
	"time"

	domusage "github.com/kailas-cloud/talentrag/internal/domain/usage"
)

// --- Mock ---

type mockBudgetReader struct {
	dailyLimit       int64
	monthlyLimit     int64
	dailyUsed        int64
	monthlyUsed      int64
	remainingDaily   int64
	remainingMonthly int64
	requests         int64
}

func (m *mockBudgetReader) DailyLimit() int64       { return m.dailyLimit }
func (m *mockBudgetReader) MonthlyLimit() int64     { return m.monthlyLimit }
func (m *mockBudgetReader) DailyUsed() int64        { return m.dailyUsed }
func (m *mockBudgetReader) MonthlyUsed() int64      { return m.monthlyUsed }
func (m *mockBudgetReader) RemainingDaily() int64   { return m.remainingDaily }
func (m *mockBudgetReader) RemainingMonthly() int64 { return m.remainingMonthly }
func (m *mockBudgetReader) Requests() int64         { return m.requests }

var fixedNow = time.Date(2026, 2, 14, 15, 30, 0, 0, time.UTC)

func newService(br BudgetReader, opts Options) *Service {
	svc := New(br, opts)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// --- Tests ---

func TestGetReport_DailyPeriod(t *testing.T) {
	br := &mockBudgetReader{
		dailyLimit:       10000,
		dailyUsed:        3000,
		remainingDaily:   7000,
		monthlyLimit:     100000,
		monthlyUsed:      50000,
		remainingMonthly: 50000,
		requests:         12,
	}
	svc := newService(br, Options{Provider: "openai", Model: "text-embedding-ada-002", CostPerMillionTokens: 0.10})
	r := svc.GetReport(context.Background(), domusage.PeriodDay)

	dayStart := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	if r.PeriodStart != dayStart.UnixMilli() || r.PeriodEnd != dayStart.Add(24*time.Hour).UnixMilli() {
		t.Errorf("period = [%d, %d)", r.PeriodStart, r.PeriodEnd)
	}
	if r.Budget.Limit != 10000 || r.Budget.Remaining != 7000 || r.Budget.Exhausted {
		t.Errorf("budget = %+v", r.Budget)
	}
	if r.Budget.ResetsAt != r.PeriodEnd {
		t.Errorf("resets_at = %d, want period end", r.Budget.ResetsAt)
	}
	if r.Tokens != 3000 || r.Requests != 12 {
		t.Errorf("tokens=%d requests=%d", r.Tokens, r.Requests)
	}
	if r.Provider != "openai" || r.Model != "text-embedding-ada-002" {
		t.Errorf("labels = %q/%q", r.Provider, r.Model)
	}
}

func TestGetReport_MonthlyPeriod(t *testing.T) {
	br := &mockBudgetReader{
		monthlyLimit:     100000,
		monthlyUsed:      80000,
		remainingMonthly: 20000,
	}
	r := newService(br, Options{}).GetReport(context.Background(), domusage.PeriodMonth)

	monthStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if r.PeriodStart != monthStart.UnixMilli() {
		t.Errorf("period start = %d, want %d", r.PeriodStart, monthStart.UnixMilli())
	}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli(); r.PeriodEnd != want {
		t.Errorf("period end = %d, want %d", r.PeriodEnd, want)
	}
	if r.Budget.Limit != 100000 || r.Tokens != 80000 {
		t.Errorf("report = %+v", r)
	}
}

func TestGetReport_TotalPeriod(t *testing.T) {
	br := &mockBudgetReader{
		monthlyLimit:     100000,
		monthlyUsed:      100000,
		remainingMonthly: 0,
	}
	r := newService(br, Options{}).GetReport(context.Background(), domusage.PeriodTotal)

	if r.PeriodStart != 0 || r.PeriodEnd != 0 {
		t.Errorf("total period must have no boundaries, got [%d, %d)", r.PeriodStart, r.PeriodEnd)
	}
	if !r.Budget.Exhausted {
		t.Error("budget should be exhausted")
	}
}

func TestGetReport_NilBudgetReader(t *testing.T) {
	r := newService(nil, Options{}).GetReport(context.Background(), domusage.PeriodDay)

	if r.Budget.Limit != 0 || r.Budget.Remaining != -1 || r.Budget.Exhausted {
		t.Errorf("unlimited budget = %+v", r.Budget)
	}
	if r.Tokens != 0 || r.Requests != 0 {
		t.Errorf("nothing should be tracked, got %+v", r)
	}
}

func TestGetReport_Cost(t *testing.T) {
	tests := []struct {
		tokens int64
		price  float64
		want   int64
	}{
		{1_000_000, 0.10, 100},
		{2_500_000, 0.02, 50},
		{0, 0.10, 0},
		{1_000_000, 0, 0},
	}
	for _, tt := range tests {
		br := &mockBudgetReader{dailyUsed: tt.tokens, remainingDaily: -1}
		r := newService(br, Options{CostPerMillionTokens: tt.price}).GetReport(context.Background(), domusage.PeriodDay)
		if r.CostMillidollars != tt.want {
			t.Errorf("cost(%d tokens @ %g) = %d, want %d", tt.tokens, tt.price, r.CostMillidollars, tt.want)
		}
	}
}
