package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "legal_updates"

// Metrics holds the Prometheus collectors updated by each ingestion pass.
type Metrics struct {
	Fetched     *prometheus.CounterVec
	Inserted    *prometheus.CounterVec
	Duplicates  *prometheus.CounterVec
	StoreErrors prometheus.Counter
	Duration    prometheus.Histogram
}

// NewMetrics registers the ingestion collectors on reg, or the default registerer when nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		Fetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fetched_total",
			Help:      "Update records produced by each source",
		}, []string{"source"}),
		Inserted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "inserted_total",
			Help:      "Update records newly stored per source",
		}, []string{"source"}),
		Duplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "duplicates_total",
			Help:      "Update records skipped as duplicates per source",
		}, []string{"source"}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "store_errors_total",
			Help:      "Update records that failed validation or storage",
		}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a full ingestion pass",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}
