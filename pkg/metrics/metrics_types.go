package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics of one sampler process.
type Registry struct {
	// Sampling Metrics
	RRSetsGenerated   *prometheus.CounterVec
	RRSetSize         *prometheus.HistogramVec
	BatchesTotal      *prometheus.CounterVec
	BatchDuration     *prometheus.HistogramVec
	PoolSize          prometheus.Gauge
	SampleTarget      *prometheus.GaugeVec
	BoundSearchRounds prometheus.Counter
	LowerBound        prometheus.Gauge
	PhaseDuration     *prometheus.HistogramVec

	// Selection Metrics
	SelectionsTotal   *prometheus.CounterVec
	SelectionDuration *prometheus.HistogramVec
	Coverage          prometheus.Gauge

	// Transport Metrics
	AllReduceTotal    *prometheus.CounterVec
	AllReduceDuration prometheus.Histogram
	TransportBytes    *prometheus.CounterVec
	SurveyRetries     prometheus.Counter

	// System Metrics
	UptimeSeconds  prometheus.Gauge
	GoRoutines     prometheus.Gauge
	HeapInuseBytes prometheus.Gauge
	GCCycles       prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
	mu       sync.Mutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide metrics registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
	}

	r.initSamplingMetrics()
	r.initSelectionMetrics()
	r.initTransportMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
