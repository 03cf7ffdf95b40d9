package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSamplingMetrics() {
	r.RRSetsGenerated = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "imm_rrsets_generated_total",
			Help: "Total number of RR sets sampled",
		},
		[]string{"model"},
	)

	r.RRSetSize = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imm_rrset_size_vertices",
			Help:    "Number of vertices in a sampled RR set",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"model"},
	)

	r.BatchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "imm_traversal_batches_total",
			Help: "Total number of batched traversals by memory layout",
		},
		[]string{"layout"},
	)

	r.BatchDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imm_traversal_batch_duration_seconds",
			Help:    "Duration of one batched traversal",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
		[]string{"layout"},
	)

	r.PoolSize = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "imm_rrset_pool_size",
			Help: "Number of RR sets held by this rank",
		},
	)

	r.SampleTarget = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "imm_sample_target",
			Help: "Most recent local RR set target by stage (bound_search, bulk)",
		},
		[]string{"stage"},
	)

	r.BoundSearchRounds = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "imm_bound_search_iterations_total",
			Help: "Total number of bound search iterations executed",
		},
	)

	r.LowerBound = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "imm_lower_bound",
			Help: "Accepted lower bound on the optimal spread (0 if none)",
		},
	)

	r.PhaseDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imm_phase_duration_seconds",
			Help:    "Duration of an IMM phase",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"phase"},
	)
}
