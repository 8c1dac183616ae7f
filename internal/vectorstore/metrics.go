package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpsertsTotal counts point upserts by class and result.
	// Labels: class (entity, relation, context, triplet), result (success, error)
	UpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memoryd",
			Subsystem: "vectorstore",
			Name:      "upserts_total",
			Help:      "Total number of point upserts by class and result",
		},
		[]string{"class", "result"},
	)

	// SearchesTotal counts similarity searches by class and result.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memoryd",
			Subsystem: "vectorstore",
			Name:      "searches_total",
			Help:      "Total number of similarity searches by class and result",
		},
		[]string{"class", "result"},
	)

	// SearchDuration tracks similarity search latency.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "memoryd",
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of similarity search operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// TenantErasures counts whole-tenant index deletions.
	// Labels: result (success, error)
	TenantErasures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memoryd",
			Subsystem: "vectorstore",
			Name:      "tenant_erasures_total",
			Help:      "Total number of whole-tenant index erasures",
		},
		[]string{"result"},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
