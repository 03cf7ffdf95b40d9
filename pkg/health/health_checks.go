package health

import (
	"sync"
	"time"
)

// Alive is a liveness check that always passes.
func Alive() CheckFunc {
	return func() Check {
		return Check{Status: StatusHealthy}
	}
}

// ErrorCheck is healthy while ping returns nil.
func ErrorCheck(ping func() error) CheckFunc {
	return func() Check {
		if err := ping(); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Status: StatusHealthy}
	}
}

// Phase names reported by Progress.
const (
	PhaseStarting = "starting"
	PhaseSampling = "sampling"
	PhaseDone     = "done"
	PhaseFailed   = "failed"
)

// Progress tracks the phase of a run for the readiness endpoint. The zero
// value is in PhaseStarting.
type Progress struct {
	mu      sync.Mutex
	phase   string
	since   time.Time
	message string
}

// Set moves the run to phase.
func (p *Progress) Set(phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = phase
	p.since = time.Now()
	p.message = ""
}

// Fail records a failed run.
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = PhaseFailed
	p.since = time.Now()
	p.message = err.Error()
}

// Phase returns the current phase.
func (p *Progress) Phase() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase == "" {
		return PhaseStarting
	}
	return p.phase
}

// Check reports the run: degraded while starting, unhealthy once failed.
func (p *Progress) Check() Check {
	phase := p.Phase()
	p.mu.Lock()
	defer p.mu.Unlock()

	check := Check{
		Status:  StatusHealthy,
		Message: p.message,
		Details: map[string]any{"phase": phase},
	}
	if !p.since.IsZero() {
		check.Details["phase_seconds"] = time.Since(p.since).Seconds()
	}
	switch phase {
	case PhaseStarting:
		check.Status = StatusDegraded
	case PhaseFailed:
		check.Status = StatusUnhealthy
	}
	return check
}
