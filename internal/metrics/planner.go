package metrics

import "github.com/prometheus/client_golang/prometheus"

// Planner Prometheus metrics.
var (
	PlannerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "planner_requests_total",
			Help:      "Total number of filter planning requests",
		},
		[]string{"provider", "model", "status"},
	)

	PlannerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "planner_request_duration_seconds",
			Help:      "Filter planning request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	PlannerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "planner_tokens_total",
			Help:      "Total planner tokens consumed",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "completion"
	)

	PlannerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "planner_errors_total",
			Help:      "Total planner errors",
		},
		[]string{"provider", "model", "error_type"},
	)
)

var plannerMetricsRegistered bool

// RegisterPlannerMetrics registers planner metrics. Must be called once from main.
func RegisterPlannerMetrics() {
	if plannerMetricsRegistered {
		return
	}
	prometheus.MustRegister(PlannerRequestsTotal)
	prometheus.MustRegister(PlannerRequestDuration)
	prometheus.MustRegister(PlannerTokensTotal)
	prometheus.MustRegister(PlannerErrorsTotal)
	plannerMetricsRegistered = true
}
