package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means an optional component failed; chat still answers from stored notes.
	Degraded Status = "degraded"
	// Unhealthy means the database is unreachable and no request can be served.
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

// DefaultCheckTimeout bounds each component ping.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name     string
	critical bool
	ping     func(ctx context.Context) error
}

// Service coordinates health checks.
type Service struct {
	components []component
	timeout    time.Duration
}

// New creates a Service. objects can be nil.
func New(db DBPinger, objects ObjectPinger) *Service {
	s := &Service{timeout: DefaultCheckTimeout}
	s.components = append(s.components, component{name: "database", critical: true, ping: db.Ping})
	if objects != nil {
		s.components = append(s.components, component{name: "objects", ping: objects.Ping})
	}
	return s
}

// WithTimeout overrides the per-component ping timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check pings every component. A failing critical component makes the report
// Unhealthy, any other failure makes it Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.components))
	status := Healthy

	for _, c := range s.components {
		if err := s.ping(ctx, c); err != nil {
			checks[c.name] = CheckError
			switch {
			case c.critical:
				status = Unhealthy
			case status == Healthy:
				status = Degraded
			}
			continue
		}
		checks[c.name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) ping(ctx context.Context, c component) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return c.ping(ctx)
}
