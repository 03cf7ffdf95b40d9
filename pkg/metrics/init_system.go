package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process gauges, refreshed by UpdateSystemMetrics.
func (r *Registry) initSystemMetrics() {
	gauge := func(name, help string) prometheus.Gauge {
		return promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	r.UptimeSeconds = gauge("imm_process_uptime_seconds", "Seconds since the registry was created")
	r.GoRoutines = gauge("imm_process_goroutines", "Live goroutines, including sampling workers")
	r.HeapInuseBytes = gauge("imm_process_heap_inuse_bytes", "Bytes in in-use heap spans")
	r.GCCycles = gauge("imm_process_gc_cycles", "Completed garbage collection cycles")
}
