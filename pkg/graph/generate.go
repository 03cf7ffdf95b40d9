package graph

import (
	"fmt"
	"math/rand/v2"

	"github.com/dd0wney/cluso-imm/pkg/rng"
)

// GenerateOptions configures a synthetic influence graph.
type GenerateOptions struct {
	Nodes     int
	AvgDegree int
	Seed      uint64
}

// DefaultGenerateOptions returns a small benchmark-sized configuration.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Nodes:     1000,
		AvgDegree: 10,
		Seed:      1,
	}
}

// Generate builds a random directed graph with weighted-cascade weights: every
// edge entering v carries weight 1/in-degree(v), so incoming weights sum to 1
// and the graph is valid under both diffusion models. Self-loops and parallel
// edges are skipped.
func Generate(opts GenerateOptions) (*Graph, error) {
	if opts.Nodes <= 0 {
		return nil, ErrEmptyGraph
	}
	if opts.AvgDegree < 0 {
		return nil, fmt.Errorf("average degree must be non-negative, got %d", opts.AvgDegree)
	}

	r := rand.New(rng.New(opts.Seed))
	type pair struct{ from, to uint32 }
	seen := make(map[pair]struct{}, opts.Nodes*opts.AvgDegree)
	inDegree := make([]int, opts.Nodes)
	pairs := make([]pair, 0, opts.Nodes*opts.AvgDegree)

	for i := 0; i < opts.Nodes*opts.AvgDegree; i++ {
		p := pair{from: uint32(r.IntN(opts.Nodes)), to: uint32(r.IntN(opts.Nodes))}
		if p.from == p.to {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		inDegree[p.to]++
		pairs = append(pairs, p)
	}

	b := NewBuilder(opts.Nodes)
	for _, p := range pairs {
		if err := b.AddEdge(p.from, p.to, 1/float64(inDegree[p.to])); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
