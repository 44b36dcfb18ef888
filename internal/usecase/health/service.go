package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates a critical component is failing.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names.
const (
	Source      = "source"
	VectorStore = "vector_store"
	Embedding   = "embedding"
	Cache       = "cache"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type check struct {
	name     string
	critical bool
	fn       CheckFunc
}

// Service coordinates health checks.
type Service struct {
	checks  []check
	timeout time.Duration
}

// New creates a Service with no checks.
func New() *Service {
	return &Service{timeout: DefaultTimeout}
}

// WithTimeout sets the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Critical registers a check whose failure makes the service unhealthy. Nil pingers are ignored.
func (s *Service) Critical(name string, p Pinger) *Service {
	if p != nil {
		s.checks = append(s.checks, check{name: name, critical: true, fn: p.Ping})
	}
	return s
}

// Optional registers a check whose failure only degrades the service. Nil fn is ignored.
func (s *Service) Optional(name string, fn CheckFunc) *Service {
	if fn != nil {
		s.checks = append(s.checks, check{name: name, fn: fn})
	}
	return s
}

// Check runs all checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.checks))
		status = Healthy
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()
			res := CheckOK
			if err := c.fn(cctx); err != nil {
				res = CheckError
			}

			mu.Lock()
			defer mu.Unlock()
			checks[c.name] = res
			if res == CheckError {
				if c.critical {
					status = Unhealthy
				} else if status == Healthy {
					status = Degraded
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: status, Checks: checks}
}
