package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSelectionMetrics() {
	r.SelectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "imm_seed_selections_total",
			Help: "Total number of seed selection runs",
		},
		[]string{"selector", "status"},
	)

	r.SelectionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imm_seed_selection_duration_seconds",
			Help:    "Duration of one seed selection run",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"selector"},
	)

	r.Coverage = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "imm_coverage_fraction",
			Help: "Fraction of RR sets covered by the most recent seed set",
		},
	)
}
