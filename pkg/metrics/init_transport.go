package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTransportMetrics() {
	r.AllReduceTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "imm_allreduce_total",
			Help: "Total number of all-reduce rounds by status",
		},
		[]string{"status"},
	)

	r.AllReduceDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imm_allreduce_duration_seconds",
			Help:    "Duration of one all-reduce round",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	r.TransportBytes = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "imm_transport_bytes_total",
			Help: "Compressed bytes moved between ranks",
		},
		[]string{"direction"},
	)

	r.SurveyRetries = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "imm_survey_retries_total",
			Help: "Survey rounds repeated because some ranks did not answer in time",
		},
	)
}
