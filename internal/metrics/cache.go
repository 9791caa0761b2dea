package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Query cache, snapshot and classifier metrics.
var (
	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Filter query cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SnapshotSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_saves_total",
			Help:      "Document snapshot saves",
		},
		[]string{"status"}, // "ok" / "error" / "superseded"
	)

	ClassifierDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_dropped_elements_total",
			Help:      "Elements dropped because their descriptor could not be built",
		},
		[]string{"kind"},
	)
)

var storeMetricsOnce sync.Once

// RegisterStoreMetrics registers cache, snapshot and classifier metrics.
func RegisterStoreMetrics() {
	storeMetricsOnce.Do(func() {
		prometheus.MustRegister(QueryCacheTotal)
		prometheus.MustRegister(SnapshotSavesTotal)
		prometheus.MustRegister(ClassifierDroppedTotal)
	})
}
