// Package metrics exposes Prometheus counters for ingestion and retrieval.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// File outcomes.
const (
	OutcomeIngested  = "ingested"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomePartial   = "partial"
)

// Retrieval outcomes. OutcomeEmpty also marks files without extractable text.
const (
	OutcomeHit      = "hit"
	OutcomeEmpty    = "empty"
	OutcomeDegraded = "degraded"
)

// Metrics holds the collectors of one process. Each instance owns its
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// IngestFiles counts processed files.
	// Labels: outcome (ingested, duplicate, failed, partial, empty)
	IngestFiles *prometheus.CounterVec

	// ChunksWritten counts entries actually stored.
	ChunksWritten prometheus.Counter

	// Retrievals counts retrieval calls.
	// Labels: outcome (hit, empty, degraded)
	Retrievals *prometheus.CounterVec

	// Passages observes how many passages each retrieval returned.
	Passages prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		IngestFiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vergiai",
				Subsystem: "ingest",
				Name:      "files_total",
				Help:      "Total number of ingested files by outcome",
			},
			[]string{"outcome"},
		),
		ChunksWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vergiai",
				Subsystem: "ingest",
				Name:      "chunks_written_total",
				Help:      "Total number of chunks written to the store",
			},
		),
		Retrievals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vergiai",
				Subsystem: "retrieval",
				Name:      "requests_total",
				Help:      "Total number of retrievals by outcome",
			},
			[]string{"outcome"},
		),
		Passages: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "vergiai",
				Subsystem: "retrieval",
				Name:      "passages",
				Help:      "Number of passages returned per retrieval",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
			},
		),
	}

	m.registry.MustRegister(
		m.IngestFiles,
		m.ChunksWritten,
		m.Retrievals,
		m.Passages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
