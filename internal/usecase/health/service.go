package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates at least one failing component.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service runs the registered component checks.
type Service struct {
	checks map[string]Checker
}

// New creates a Service with no checks; an empty service always reports Healthy.
func New() *Service {
	return &Service{checks: make(map[string]Checker)}
}

// With registers c under name. Nil checkers are ignored.
func (s *Service) With(name string, c Checker) *Service {
	if c != nil {
		s.checks[name] = c
	}
	return s
}

// Names returns the registered check names in sorted order.
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.checks))
	for n := range s.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check runs every registered check.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks))
	status := Healthy

	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = CheckError
			status = Degraded
			continue
		}
		checks[name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
