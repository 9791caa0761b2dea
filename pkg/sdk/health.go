package bimlink

import "context"

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status          string            // "ok", "degraded", "error"
	Checks          map[string]string // component → "ok"/"error"
	DocumentVersion uint64
}

// Health checks the host and, when connected, the database.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status:          string(report.Status),
		Checks:          checks,
		DocumentVersion: report.Version,
	}
}
