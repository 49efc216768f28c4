// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors a Pipeline records into. A nil
// *Metrics records nothing.
type Metrics struct {
	// stageDuration measures one model call plus parsing.
	// Labels: stage (1, 2, 3), status (success, error)
	stageDuration *prometheus.HistogramVec

	// tokens counts provider tokens.
	// Labels: stage, direction (input, output)
	tokens *prometheus.CounterVec

	// extractions counts finished invocations.
	// Labels: outcome (completed, failed, cancelled)
	extractions *prometheus.CounterVec

	// substitutions counts defaults, clamps and drops made while sanitizing.
	// Labels: stage
	substitutions *prometheus.CounterVec

	// droppedReferences counts index references that did not resolve.
	// Labels: kind (table, connection, hint, theme, relevance)
	droppedReferences *prometheus.CounterVec
}

// NewMetrics creates the pipeline collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "paper_graph",
			Subsystem: "stage",
			Name:      "duration_seconds",
			Help:      "Stage latency in seconds, model call included",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"stage", "status"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paper_graph",
			Subsystem: "stage",
			Name:      "tokens_total",
			Help:      "Provider tokens consumed per stage",
		}, []string{"stage", "direction"}),
		extractions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paper_graph",
			Name:      "extractions_total",
			Help:      "Finished extractions by outcome",
		}, []string{"outcome"}),
		substitutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paper_graph",
			Subsystem: "sanitize",
			Name:      "substitutions_total",
			Help:      "Fields defaulted, clamped, truncated or dropped while sanitizing model output",
		}, []string{"stage"}),
		droppedReferences: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paper_graph",
			Subsystem: "assemble",
			Name:      "dropped_references_total",
			Help:      "Finding references that did not resolve during assembly",
		}, []string{"kind"}),
	}
}

func (m *Metrics) observeStage(stage, status string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(seconds)
}

func (m *Metrics) addTokens(stage string, input, output int) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(stage, "input").Add(float64(input))
	m.tokens.WithLabelValues(stage, "output").Add(float64(output))
}

func (m *Metrics) outcome(outcome string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) addSubstitutions(stage string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.substitutions.WithLabelValues(stage).Add(float64(n))
}

func (m *Metrics) addDropped(d dropCounts) {
	if m == nil {
		return
	}
	for kind, n := range d {
		if n > 0 {
			m.droppedReferences.WithLabelValues(kind).Add(float64(n))
		}
	}
}
