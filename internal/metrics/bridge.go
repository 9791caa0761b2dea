package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bimlink"

// Bridge Prometheus metrics.
var (
	BridgeInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_invocations_total",
			Help:      "Command invocations by outcome",
		},
		[]string{"command", "outcome"}, // success / failure / timeout / busy / stopped
	)

	BridgeInvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bridge_invocation_duration_seconds",
			Help:      "Time from invocation to result, including the wait for the UI thread",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"command"},
	)

	BridgeOrphansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_orphaned_callbacks_total",
			Help:      "Host callbacks whose caller had given up",
		},
		[]string{"command", "reason"}, // "stale" / "discarded"
	)

	HostCallbackPanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_callback_panics_total",
			Help:      "Panics recovered on the host UI goroutine",
		},
	)
)

var bridgeMetricsOnce sync.Once

// RegisterBridgeMetrics registers bridge and host metrics. Safe to call more than once.
func RegisterBridgeMetrics() {
	bridgeMetricsOnce.Do(func() {
		prometheus.MustRegister(BridgeInvocationsTotal)
		prometheus.MustRegister(BridgeInvocationDuration)
		prometheus.MustRegister(BridgeOrphansTotal)
		prometheus.MustRegister(HostCallbackPanicsTotal)
	})
}
