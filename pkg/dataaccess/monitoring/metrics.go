package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Every ticket-store query reports through these two collectors. The label
// pair dal/query identifies the caller, database/collection the target, so
// per-guild collections stay distinguishable.
var (
	// MongoLatency observes how long each ticket-store query takes.
	MongoLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "warden",
			Name:      "mongo_query_duration_seconds",
			Help:      "Duration of ticket store queries",
		},
		[]string{"dal", "query", "database", "collection"},
	)

	// MongoTotalRequests counts ticket-store queries issued.
	MongoTotalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "mongo_queries_total",
			Help:      "Total number of ticket store queries",
		},
		[]string{"dal", "query", "database", "collection"},
	)
)
