// Package graph holds the read-only influence graph consumed by RR-set
// sampling.
//
// The graph is stored transposed in CSR form: the neighbours of v are the
// vertices that can activate v, together with the weight of that edge. A
// reverse-reachability traversal therefore walks Neighbors directly.
package graph

import "math"

// Neighbor is one entry of a transposed adjacency list.
type Neighbor struct {
	Vertex uint32
	Weight float32
}

// Graph is an immutable transposed CSR graph. It is safe for concurrent use.
type Graph struct {
	offsets []uint64 // len n+1
	edges   []Neighbor
}

// NumNodes returns the number of vertices.
func (g *Graph) NumNodes() int {
	if len(g.offsets) == 0 {
		return 0
	}
	return len(g.offsets) - 1
}

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int {
	return len(g.edges)
}

// Neighbors returns the vertices that can activate v, in ascending vertex order.
// The returned slice must not be modified.
func (g *Graph) Neighbors(v uint32) []Neighbor {
	return g.edges[g.offsets[v]:g.offsets[v+1]]
}

// InDegree returns the number of edges entering v in the influence graph.
func (g *Graph) InDegree(v uint32) int {
	return int(g.offsets[v+1] - g.offsets[v])
}

// IncomingWeight returns the summed weight of the edges entering v.
func (g *Graph) IncomingWeight(v uint32) float64 {
	total := 0.0
	for _, nb := range g.Neighbors(v) {
		total += float64(nb.Weight)
	}
	return total
}

// NormalizeLinearThreshold returns a copy of g in which the incoming weights of
// every vertex whose weights sum above 1 are scaled to sum to exactly 1.
func (g *Graph) NormalizeLinearThreshold() *Graph {
	out := &Graph{
		offsets: g.offsets,
		edges:   make([]Neighbor, len(g.edges)),
	}
	copy(out.edges, g.edges)

	for v := 0; v < g.NumNodes(); v++ {
		total := g.IncomingWeight(uint32(v))
		if total <= 1 {
			continue
		}
		for i := g.offsets[v]; i < g.offsets[v+1]; i++ {
			out.edges[i].Weight = float32(math.Min(1, float64(out.edges[i].Weight)/total))
		}
	}
	return out
}
