// Package pricing - Engine metrics
package pricing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Evaluation outcomes used as the status label
const (
	StatusOK              = "ok"
	StatusParseError      = "parse_error"
	StatusEvaluationError = "evaluation_error"
	StatusInputError      = "input_error"
)

// Metrics holds the engine's Prometheus metrics
type Metrics struct {
	// Evaluation metrics
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec

	// Formula cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Quote metrics
	QuotesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecalc_evaluations_total",
				Help: "Total number of entity price evaluations",
			},
			[]string{"entity", "status"},
		),
		EvaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricecalc_evaluation_duration_seconds",
				Help:    "Entity price evaluation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"entity"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pricecalc_formula_cache_hits_total",
				Help: "Total number of parsed formula cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pricecalc_formula_cache_misses_total",
				Help: "Total number of parsed formula cache misses",
			},
		),
		QuotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecalc_quotes_total",
				Help: "Total number of quotes by completeness",
			},
			[]string{"status"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.EvaluationsTotal,
			m.EvaluationDuration,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.QuotesTotal,
		)
	}
	return m
}

// RecordEvaluation records one entity evaluation
func (m *Metrics) RecordEvaluation(entity, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(entity, status).Inc()
	m.EvaluationDuration.WithLabelValues(entity).Observe(duration.Seconds())
}

// RecordCacheLookup records a formula cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

// RecordQuote records a quote as complete or partial
func (m *Metrics) RecordQuote(complete bool) {
	if m == nil {
		return
	}
	status := "complete"
	if !complete {
		status = "partial"
	}
	m.QuotesTotal.WithLabelValues(status).Inc()
}
