package graph

import (
	"fmt"
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
)

// FromGonum converts a weighted directed gonum graph into a transposed Graph.
// Gonum node IDs may be sparse; they are mapped to dense vertices in ascending
// ID order and the mapping (dense vertex -> gonum ID) is returned.
func FromGonum(g gonumgraph.WeightedDirected) (*Graph, []int64, error) {
	nodes := gonumgraph.NodesOf(g.Nodes())
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	dense := make(map[int64]uint32, len(ids))
	for i, id := range ids {
		dense[id] = uint32(i)
	}

	b := NewBuilder(len(ids))
	for _, uid := range ids {
		to := g.From(uid)
		for to.Next() {
			vid := to.Node().ID()
			w := g.WeightedEdge(uid, vid).Weight()
			if err := b.AddEdge(dense[uid], dense[vid], w); err != nil {
				return nil, nil, fmt.Errorf("gonum edge %d->%d: %w", uid, vid, err)
			}
		}
	}

	built, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return built, ids, nil
}
