package health

import "context"

// HostPinger round-trips through the host UI goroutine.
type HostPinger interface {
	Ping(ctx context.Context) error
}

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// PlannerChecker checks language model provider availability.
type PlannerChecker interface {
	HealthCheck(ctx context.Context) error
}
