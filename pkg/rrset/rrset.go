// Package rrset holds reverse-reachable sets and the append-only pool they are
// collected into during one run.
package rrset

import "slices"

// Set is one RR set: vertex IDs in strictly ascending order. A Set is never
// modified after it is added to a Pool.
type Set []uint32

// Contains reports whether v is in the set.
func (s Set) Contains(v uint32) bool {
	_, found := slices.BinarySearch(s, v)
	return found
}

// Valid reports whether the set is strictly ascending.
func (s Set) Valid() bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= s[i] {
			return false
		}
	}
	return true
}

// Pool is an append-only sequence of RR sets. Its length only grows within a
// run. A Pool is not safe for concurrent appends; workers sample into local
// buffers that are appended after they join.
type Pool struct {
	sets     []Set
	vertices int
}

// NewPool creates an empty pool with room for capacity sets.
func NewPool(capacity int) *Pool {
	return &Pool{sets: make([]Set, 0, capacity)}
}

// Append adds sets to the end of the pool.
func (p *Pool) Append(sets ...Set) {
	for _, s := range sets {
		p.vertices += len(s)
	}
	p.sets = append(p.sets, sets...)
}

// Grow makes room for n more sets without reallocating.
func (p *Pool) Grow(n int) {
	p.sets = slices.Grow(p.sets, n)
}

// Len returns the number of sets in the pool.
func (p *Pool) Len() int {
	return len(p.sets)
}

// At returns the i-th set.
func (p *Pool) At(i int) Set {
	return p.sets[i]
}

// Sets returns the pool contents. The slice must be treated as read-only.
func (p *Pool) Sets() []Set {
	return p.sets
}

// Vertices returns the summed size of all sets.
func (p *Pool) Vertices() int {
	return p.vertices
}

// AverageSize returns the mean RR set size, or 0 for an empty pool.
func (p *Pool) AverageSize() float64 {
	if len(p.sets) == 0 {
		return 0
	}
	return float64(p.vertices) / float64(len(p.sets))
}
