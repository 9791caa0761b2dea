package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the host is not answering.
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

// Report aggregates health check results.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Version uint64
}

// Service coordinates health checks.
type Service struct {
	host    HostPinger
	db      DBPinger
	planner PlannerChecker
	version func() uint64
}

// New creates a Service. db and planner can be nil.
func New(host HostPinger, db DBPinger, planner PlannerChecker, version func() uint64) *Service {
	return &Service{host: host, db: db, planner: planner, version: version}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{"host": result(s.host.Ping(ctx))}
	if s.db != nil {
		checks["database"] = result(s.db.Ping(ctx))
	}
	if s.planner != nil {
		checks["planner"] = result(s.planner.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["host"] == CheckError {
		status = Unhealthy
	}

	r := Report{Status: status, Checks: checks}
	if s.version != nil {
		r.Version = s.version()
	}
	return r
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
