// Package metrics records pipeline activity.
//
// Prometheus keeps its collectors on a private registry so several
// pipelines (and tests) can coexist in one process.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "sercha_rag"

// Ensure Prometheus implements the interface.
var _ driven.PipelineMetrics = (*Prometheus)(nil)

// Prometheus records pipeline metrics as Prometheus collectors.
type Prometheus struct {
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	documents     *prometheus.CounterVec
	queries       *prometheus.CounterVec
	confidence    *prometheus.HistogramVec
	sources       *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewPrometheus creates the collectors on a fresh registry.
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Prometheus{registry: prometheus.NewRegistry()}

	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"stage"},
	)
	m.stageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Pipeline stages that ended in an error",
		},
		[]string{"stage"},
	)
	m.documents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Document lifecycle operations by outcome",
		},
		[]string{"namespace", "status"},
	)
	m.queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Answered queries",
		},
		[]string{"namespace"},
	)
	m.confidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_confidence",
			Help:      "Confidence of answered queries",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"namespace"},
	)
	m.sources = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_sources",
			Help:      "Number of sources returned per query",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		},
		[]string{"namespace"},
	)

	m.registry.MustRegister(
		m.stageDuration,
		m.stageErrors,
		m.documents,
		m.queries,
		m.confidence,
		m.sources,
	)

	return m
}

// ObserveStage records a stage duration and counts failures.
func (m *Prometheus) ObserveStage(stage string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(stage).Inc()
	}
}

// DocumentProcessed counts a document lifecycle outcome.
func (m *Prometheus) DocumentProcessed(namespace, status string) {
	m.documents.WithLabelValues(namespace, status).Inc()
}

// QueryAnswered records a completed query.
func (m *Prometheus) QueryAnswered(namespace string, confidence float64, sources int) {
	m.queries.WithLabelValues(namespace).Inc()
	m.confidence.WithLabelValues(namespace).Observe(confidence)
	m.sources.WithLabelValues(namespace).Observe(float64(sources))
}

// Registry returns the registry holding the collectors.
func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
