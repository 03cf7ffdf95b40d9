// Package pools provides size-classed slice pooling for the sampling hot path.
//
//   - VertexPool: []uint32 frontier and RR-set scratch buffers
//   - CountPool: []uint64 coverage count vectors exchanged between ranks
//   - BytePool: encoded transport frames
package pools

import "sync"

// MaxPooled is the largest capacity, in elements, that is returned to a pool.
// Anything bigger is left to the garbage collector.
const MaxPooled = 1 << 20

// classPool keeps one sync.Pool per capacity class. classes must be ascending.
type classPool[T any] struct {
	classes []int
	pools   []sync.Pool
}

func newClassPool[T any](classes ...int) *classPool[T] {
	p := &classPool[T]{
		classes: classes,
		pools:   make([]sync.Pool, len(classes)),
	}
	for i, c := range classes {
		size := c
		p.pools[i].New = func() any {
			s := make([]T, 0, size)
			return &s
		}
	}
	return p
}

// class returns the index of the smallest class holding size, or -1.
func (p *classPool[T]) class(size int) int {
	for i, c := range p.classes {
		if size <= c {
			return i
		}
	}
	return -1
}

func (p *classPool[T]) get(size int) []T {
	i := p.class(size)
	if i < 0 {
		return make([]T, 0, size)
	}
	sp, ok := p.pools[i].Get().(*[]T)
	if !ok || cap(*sp) < size {
		return make([]T, 0, size)
	}
	return (*sp)[:0]
}

func (p *classPool[T]) put(s []T) {
	c := cap(s)
	if c == 0 || c > MaxPooled {
		return
	}
	// File under the largest class the slice can fully serve.
	i := -1
	for j, class := range p.classes {
		if c >= class {
			i = j
		}
	}
	if i < 0 {
		return
	}
	s = s[:0]
	p.pools[i].Put(&s)
}
