package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search and indexing Prometheus metrics.
var (
	SearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staydex",
			Name:      "search_total",
			Help:      "Total number of searches by kind and final relaxation level",
		},
		[]string{"kind", "level"}, // kind: "units" / "properties"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "staydex",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds including relaxation retries",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)

	SearchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staydex",
			Name:      "search_errors_total",
			Help:      "Total failed searches",
		},
		[]string{"kind", "error_type"}, // "validation" / "timeout" / "internal"
	)

	IndexEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staydex",
			Name:      "index_events_total",
			Help:      "Total lifecycle hook invocations",
		},
		[]string{"hook", "status"}, // "ok" / "error"
	)

	IndexDocumentsAffectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staydex",
			Name:      "index_documents_affected_total",
			Help:      "Total documents written or removed by lifecycle hooks",
		},
		[]string{"hook"},
	)
)

var registerOnce sync.Once

// Register registers the HTTP, search and indexing metrics with the default
// registry. Must be called from main; repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration, httpRequestsTotal, httpRequestsInFlight,
			SearchTotal, SearchDuration, SearchErrorsTotal,
			IndexEventsTotal, IndexDocumentsAffectedTotal,
		)
	})
}

// ObserveIndexEvent records one hook invocation.
func ObserveIndexEvent(hook string, affected int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	IndexEventsTotal.WithLabelValues(hook, status).Inc()
	if affected > 0 {
		IndexDocumentsAffectedTotal.WithLabelValues(hook).Add(float64(affected))
	}
}
