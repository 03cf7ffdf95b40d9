// Package rng provides a splittable 64-bit linear congruential generator.
//
// A stream can be partitioned into count disjoint substreams by leapfrogging:
// substream i of count yields every count-th value of the parent starting at
// offset i. Splitting is exact and deterministic, so splitting by rank and
// then by worker gives every (rank, worker) pair its own non-overlapping
// sequence for a given seed.
package rng

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrInvalidSplit is returned when a split index is outside [0, count).
var ErrInvalidSplit = errors.New("invalid stream split")

const (
	defaultMultiplier uint64 = 18145460002477866997
	defaultIncrement  uint64 = 1

	float53 = 1.0 / (1 << 53)
)

// LCG64 computes x' = a*x + b mod 2^64. It is not safe for concurrent use;
// give each goroutine its own stream via Split or Clone.
type LCG64 struct {
	a, b, r uint64
}

// New returns the base stream for seed.
func New(seed uint64) *LCG64 {
	return &LCG64{a: defaultMultiplier, b: defaultIncrement, r: seed}
}

// Clone returns an independent copy positioned at the same state.
func (g *LCG64) Clone() *LCG64 {
	c := *g
	return &c
}

// Seed resets the stream to the base parameters and the given state.
func (g *LCG64) Seed(seed uint64) {
	g.a, g.b, g.r = defaultMultiplier, defaultIncrement, seed
}

// Next advances the stream and returns the raw state.
func (g *LCG64) Next() uint64 {
	g.r = g.a*g.r + g.b
	return g.r
}

// Uint64 returns the next value with its low bits mixed. It implements
// math/rand/v2.Source.
func (g *LCG64) Uint64() uint64 {
	z := g.Next()
	z = (z ^ (z >> 33)) * 0xff51afd7ed558ccd
	z = (z ^ (z >> 33)) * 0xc4ceb9fe1a85ec53
	return z ^ (z >> 33)
}

// Uniform returns a value in (0, 1] taken from the high 53 bits of the next
// state. A weight of 0 is never reached and a weight of 1 always is.
func (g *LCG64) Uniform() float64 {
	return float64((g.Next()>>11)+1) * float53
}

// IntN returns a value in [0, n) by multiply-shift on the high bits. n must be
// positive.
func (g *LCG64) IntN(n int) int {
	hi, _ := bits.Mul64(g.Next(), uint64(n))
	return int(hi)
}

// Jump advances the stream by steps values without producing them.
func (g *LCG64) Jump(steps uint64) {
	a, b := affinePow(g.a, g.b, steps)
	g.r = a*g.r + b
}

// Split rebinds g to substream index of count. Substream i yields the parent
// values at positions i, i+count, i+2*count, ... counted from the next value
// the parent would have produced.
func (g *LCG64) Split(count, index int) error {
	if count < 1 || index < 0 || index >= count {
		return fmt.Errorf("%w: index %d of %d", ErrInvalidSplit, index, count)
	}
	if count == 1 {
		return nil
	}

	// Position on the first value of the substream, then switch to the
	// count-step parameters and step back once so that Next returns it.
	g.Jump(uint64(index) + 1)
	a, b := affinePow(g.a, g.b, uint64(count))
	g.a, g.b = a, b
	g.r = inverse(a) * (g.r - b)
	return nil
}

// Substreams returns count independent clones of g, clone i split to index i.
// g itself is not modified.
func (g *LCG64) Substreams(count int) ([]*LCG64, error) {
	out := make([]*LCG64, count)
	for i := range out {
		out[i] = g.Clone()
		if err := out[i].Split(count, i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// affinePow returns the parameters of x -> a*x + b applied n times.
func affinePow(a, b, n uint64) (uint64, uint64) {
	accA, accB := uint64(1), uint64(0)
	for n > 0 {
		if n&1 == 1 {
			accA, accB = a*accA, a*accB+b
		}
		a, b = a*a, a*b+b
		n >>= 1
	}
	return accA, accB
}

// inverse returns the multiplicative inverse of an odd a modulo 2^64.
func inverse(a uint64) uint64 {
	x := a // correct to 3 bits for odd a
	for i := 0; i < 5; i++ {
		x *= 2 - a*x
	}
	return x
}
