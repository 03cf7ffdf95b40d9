package metrics

import (
	"runtime"
	"time"
)

// Phase labels for PhaseDuration.
const (
	PhaseBoundSearch = "bound_search"
	PhaseBulk        = "bulk"
	PhaseSelection   = "selection"
)

// RecordBatch records one batched traversal and the sizes of the RR sets it
// produced.
func (r *Registry) RecordBatch(layout, model string, duration time.Duration, sizes []int) {
	r.BatchesTotal.WithLabelValues(layout).Inc()
	r.BatchDuration.WithLabelValues(layout).Observe(duration.Seconds())
	r.RRSetsGenerated.WithLabelValues(model).Add(float64(len(sizes)))
	hist := r.RRSetSize.WithLabelValues(model)
	for _, s := range sizes {
		hist.Observe(float64(s))
	}
}

// RecordSampleTarget records the local RR set target of a stage and the pool
// size reached.
func (r *Registry) RecordSampleTarget(stage string, target uint64, poolSize int) {
	r.SampleTarget.WithLabelValues(stage).Set(float64(target))
	r.PoolSize.Set(float64(poolSize))
}

// RecordPhase records the duration of an IMM phase.
func (r *Registry) RecordPhase(phase string, duration time.Duration) {
	r.PhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordSelection records a seed selection run.
func (r *Registry) RecordSelection(selector string, coverage float64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.SelectionsTotal.WithLabelValues(selector, status).Inc()
	r.SelectionDuration.WithLabelValues(selector).Observe(duration.Seconds())
	if err == nil {
		r.Coverage.Set(coverage)
	}
}

// RecordAllReduce records one all-reduce round and the bytes it moved.
func (r *Registry) RecordAllReduce(duration time.Duration, sent, received int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.AllReduceTotal.WithLabelValues(status).Inc()
	r.AllReduceDuration.Observe(duration.Seconds())
	r.TransportBytes.WithLabelValues("sent").Add(float64(sent))
	r.TransportBytes.WithLabelValues("received").Add(float64(received))
}

// UpdateSystemMetrics refreshes the process gauges.
func (r *Registry) UpdateSystemMetrics() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.HeapInuseBytes.Set(float64(ms.HeapInuse))
	r.GCCycles.Set(float64(ms.NumGC))
}
