package api

import (
	"net/http"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for matching runs.
type Metrics struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	items        *prometheus.CounterVec
	batches      *prometheus.CounterVec
	duration     prometheus.Histogram
	qualityScore prometheus.Gauge
	cost         prometheus.Counter
}

// NewMetrics registers the matching collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "estimatch",
				Name:      "runs_total",
				Help:      "Total number of bulk matching runs by outcome",
			},
			[]string{"status"},
		),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "estimatch",
				Name:      "items_total",
				Help:      "Invoice line items resolved, by pipeline stage",
			},
			[]string{"source"},
		),
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "estimatch",
				Name:      "batches_total",
				Help:      "Collaborator batches by outcome",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "estimatch",
			Name:      "run_duration_seconds",
			Help:      "Bulk matching run duration",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		qualityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "estimatch",
			Name:      "last_quality_score",
			Help:      "Quality score of the most recent successful run",
		}),
		cost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estimatch",
			Name:      "cost_estimate_dollars_total",
			Help:      "Accumulated collaborator cost estimate",
		}),
	}

	m.registry.MustRegister(
		m.runs, m.items, m.batches, m.duration, m.qualityScore, m.cost,
		collectors.NewGoCollector(),
	)
	return m
}

// Observe records one run.
func (m *Metrics) Observe(res model.BulkMatchingResult) {
	if !res.Success {
		m.runs.WithLabelValues("failed").Inc()
		return
	}
	m.runs.WithLabelValues("success").Inc()

	met := res.Metrics
	m.items.WithLabelValues(string(model.SourcePattern)).Add(float64(met.PatternMatches))
	m.items.WithLabelValues(string(model.SourceCache)).Add(float64(met.CacheHits))
	for _, match := range res.Matches {
		if match.Source == model.SourceLLM || match.Source == model.SourceFailed {
			m.items.WithLabelValues(string(match.Source)).Inc()
		}
	}

	m.batches.WithLabelValues("succeeded").Add(float64(met.LLMCalls - met.FailedBatches))
	m.batches.WithLabelValues("failed").Add(float64(met.FailedBatches))
	m.duration.Observe(met.ProcessingTime.Seconds())
	m.qualityScore.Set(float64(res.QualityScore))
	m.cost.Add(met.CostEstimate)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
