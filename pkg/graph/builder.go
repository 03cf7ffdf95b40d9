package graph

import (
	"fmt"
	"math"
	"sort"
)

type edge struct {
	from, to uint32
	weight   float32
}

// Builder accumulates influence edges (from activates to) and produces a
// transposed Graph.
type Builder struct {
	numNodes int
	edges    []edge
}

// NewBuilder creates a builder for a graph with numNodes vertices.
func NewBuilder(numNodes int) *Builder {
	return &Builder{numNodes: numNodes}
}

// AddEdge records the influence edge from -> to with the given weight.
func (b *Builder) AddEdge(from, to uint32, weight float64) error {
	if int(from) >= b.numNodes || int(to) >= b.numNodes {
		return fmt.Errorf("%w: edge %d->%d, numNodes=%d", ErrVertexOutOfRange, from, to, b.numNodes)
	}
	if math.IsNaN(weight) || weight < 0 || weight > 1 {
		return fmt.Errorf("%w: edge %d->%d has weight %f", ErrInvalidWeight, from, to, weight)
	}
	b.edges = append(b.edges, edge{from: from, to: to, weight: float32(weight)})
	return nil
}

// Build transposes the recorded edges into CSR form. The builder may be reused
// afterwards; the returned graph does not share memory with it.
func (b *Builder) Build() (*Graph, error) {
	if b.numNodes > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyVertices, b.numNodes)
	}

	offsets := make([]uint64, b.numNodes+1)
	for _, e := range b.edges {
		offsets[e.to+1]++
	}
	for v := 0; v < b.numNodes; v++ {
		offsets[v+1] += offsets[v]
	}

	edges := make([]Neighbor, len(b.edges))
	cursor := make([]uint64, b.numNodes)
	copy(cursor, offsets[:b.numNodes])
	for _, e := range b.edges {
		edges[cursor[e.to]] = Neighbor{Vertex: e.from, Weight: e.weight}
		cursor[e.to]++
	}

	// Fixed neighbour order keeps linear-threshold scans reproducible.
	for v := 0; v < b.numNodes; v++ {
		list := edges[offsets[v]:offsets[v+1]]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Vertex < list[j].Vertex })
	}

	return &Graph{offsets: offsets, edges: edges}, nil
}
