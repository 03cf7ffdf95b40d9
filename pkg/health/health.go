// Package health reports the liveness and readiness of an IMM process over
// HTTP, next to its metrics endpoint.
package health

import (
	"sort"
	"sync"
	"time"
)

// Status is the outcome of a check, ordered healthy < degraded < unhealthy.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Kind selects the set a check belongs to.
type Kind int

const (
	// General checks are served on /health.
	General Kind = iota
	// Readiness checks gate /ready: the run is making progress.
	Readiness
	// Liveness checks gate /live: the process is responsive.
	Liveness
)

// Check is what a CheckFunc reports. CheckedAt and Took are set by the
// Checker.
type Check struct {
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
	Took      time.Duration  `json:"took_ns"`
}

// CheckFunc evaluates one check.
type CheckFunc func() Check

// Response is the aggregate of every check of one kind, keyed by name.
type Response struct {
	Status Status           `json:"status"`
	At     time.Time        `json:"at"`
	Uptime time.Duration    `json:"uptime_ns"`
	Checks map[string]Check `json:"checks"`
}

// Checker holds the named checks of a process, grouped by Kind.
type Checker struct {
	mu      sync.RWMutex
	started time.Time
	sets    map[Kind]map[string]CheckFunc
}

// NewChecker creates a checker with no checks registered.
func NewChecker() *Checker {
	return &Checker{
		started: time.Now(),
		sets:    make(map[Kind]map[string]CheckFunc),
	}
}

// Register adds fn to the checks of the given kind, replacing any check of
// the same name.
func (hc *Checker) Register(kind Kind, name string, fn CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.sets[kind] == nil {
		hc.sets[kind] = make(map[string]CheckFunc)
	}
	hc.sets[kind][name] = fn
}

// Run evaluates every check of the given kind in name order. The worst
// status wins.
func (hc *Checker) Run(kind Kind) Response {
	hc.mu.RLock()
	set := make(map[string]CheckFunc, len(hc.sets[kind]))
	for name, fn := range hc.sets[kind] {
		set[name] = fn
	}
	hc.mu.RUnlock()

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	out := Response{
		Status: StatusHealthy,
		At:     time.Now(),
		Uptime: time.Since(hc.started),
		Checks: make(map[string]Check, len(names)),
	}
	for _, name := range names {
		start := time.Now()
		c := set[name]()
		c.CheckedAt = start
		c.Took = time.Since(start)
		out.Checks[name] = c

		if c.Status.severity() > out.Status.severity() {
			out.Status = c.Status
		}
	}
	return out
}
