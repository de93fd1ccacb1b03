package forge

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes.
const (
	outcomeOK          = "ok"
	outcomeRenderError = "render_error"
	outcomeParseError  = "parse_error"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	analyses      *prometheus.CounterVec
	inferDuration prometheus.Histogram
	elements      prometheus.Histogram
	frameworks    *prometheus.CounterVec
}

func newMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "locforge_analyses_total",
			Help: "Page analyses by source and outcome.",
		}, []string{"source", "outcome"}),
		inferDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "locforge_infer_duration_seconds",
			Help:    "Time spent in locator inference per page.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		elements: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "locforge_page_elements",
			Help:    "Interactive elements kept per page.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		frameworks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "locforge_framework_ops_total",
			Help: "Framework store operations by op.",
		}, []string{"op"}),
	}
	m.Registry.MustRegister(
		m.analyses, m.inferDuration, m.elements, m.frameworks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) observeAnalysis(source, outcome string) {
	m.analyses.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) observeInference(d time.Duration, elements int) {
	m.inferDuration.Observe(d.Seconds())
	m.elements.Observe(float64(elements))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
