// Package traversal samples reverse-reachable sets with a bit-parallel BFS.
//
// One call runs up to 64 independent single-source traversals over the
// transposed influence graph. Root i owns colour i, the bit at position 63-i
// of a 64-bit mask, and draws all of its randomness from streams[i]. A vertex
// on the frontier carries the mask of every colour that reached it in the
// previous round; each colour is expanded once and then retired.
//
// Frontiers are processed in ascending vertex order. Together with the
// per-colour streams this makes the output for root i identical to a
// level-synchronous single-source traversal from root i using streams[i],
// whatever else is in the batch.
package traversal

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/dd0wney/cluso-imm/pkg/diffusion"
	"github.com/dd0wney/cluso-imm/pkg/graph"
	"github.com/dd0wney/cluso-imm/pkg/rng"
)

// MaxBatch is the number of colours in a mask.
const MaxBatch = 64

// Graph is the read-only view the traversal needs: vertex count and, per
// vertex, the vertices that can activate it.
type Graph interface {
	NumNodes() int
	Neighbors(v uint32) []graph.Neighbor
}

// Layout selects the internal memory layout of the visited state.
type Layout int

const (
	// ColourMatrix keeps one visited bitset per colour.
	ColourMatrix Layout = iota
	// VertexMask keeps one 64-bit visited mask per vertex and evaluates all
	// active colours of a vertex in a single pass over its neighbours.
	VertexMask
)

// String returns the config name of the layout.
func (l Layout) String() string {
	switch l {
	case ColourMatrix:
		return "matrix"
	case VertexMask:
		return "mask"
	default:
		return "unknown"
	}
}

// ParseLayout parses "matrix" or "mask".
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "matrix", "":
		return ColourMatrix, nil
	case "mask":
		return VertexMask, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLayout, s)
	}
}

// Traverse dispatches to the traversal for the layout.
func (l Layout) Traverse(g Graph, roots []uint32, model diffusion.Model, streams []*rng.LCG64, ws *Workspace) ([][]uint32, error) {
	switch l {
	case ColourMatrix:
		return BatchedBFS(g, roots, model, streams, ws)
	case VertexMask:
		return BatchedBFSNeighborColor(g, roots, model, streams, ws)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownLayout, int(l))
	}
}

func colourBit(c int) uint64 {
	return 1 << (63 - c)
}

// nextColour pops the most significant colour from mask.
func nextColour(mask *uint64) int {
	c := bits.LeadingZeros64(*mask)
	*mask &^= colourBit(c)
	return c
}

func checkBatch(g Graph, roots []uint32, model diffusion.Model, streams []*rng.LCG64) error {
	if len(roots) == 0 || len(roots) > MaxBatch {
		return fmt.Errorf("%w: got %d", ErrBatchSize, len(roots))
	}
	if len(streams) < len(roots) {
		return fmt.Errorf("%w: %d streams for %d roots", ErrStreamCount, len(streams), len(roots))
	}
	if err := model.Validate(); err != nil {
		return err
	}
	n := g.NumNodes()
	for _, r := range roots {
		if int(r) >= n {
			return fmt.Errorf("%w: %d, numNodes=%d", ErrRootOutOfRange, r, n)
		}
	}
	return nil
}

// seed records the roots as visited by their own colour and builds the first
// frontier. Coinciding roots share a frontier entry but keep distinct colours.
func (ws *Workspace) seed(roots []uint32, visit func(c int, v uint32)) [][]uint32 {
	outputs := make([][]uint32, len(roots))
	ws.frontier = ws.frontier[:0]
	for i, r := range roots {
		visit(i, r)
		outputs[i] = append(outputs[i], r)
		if ws.cur[r] == 0 {
			ws.frontier = append(ws.frontier, r)
		}
		ws.cur[r] |= colourBit(i)
	}
	return outputs
}

// advance promotes the next frontier. It reports false when no colour made
// progress in the last round.
func (ws *Workspace) advance() bool {
	ws.frontier, ws.nextFrontier = ws.nextFrontier, ws.frontier[:0]
	ws.cur, ws.next = ws.next, ws.cur
	slices.Sort(ws.frontier)
	return len(ws.frontier) > 0
}

// reach marks u as newly reached by the colours in gained.
func (ws *Workspace) reach(u uint32, gained uint64) {
	if ws.next[u] == 0 {
		ws.nextFrontier = append(ws.nextFrontier, u)
	}
	ws.next[u] |= gained
}

// BatchedBFS samples one RR set per root using the colour matrix layout. The
// i-th output is the RR set of roots[i], sorted ascending. streams[i] is the
// private random stream of colour i; it is advanced by the call.
func BatchedBFS(g Graph, roots []uint32, model diffusion.Model, streams []*rng.LCG64, ws *Workspace) ([][]uint32, error) {
	if err := checkBatch(g, roots, model, streams); err != nil {
		return nil, err
	}
	ws.ensure(g.NumNodes())

	outputs := ws.seed(roots, func(c int, v uint32) { ws.colour(c).Set(uint(v)) })

	for {
		for _, v := range ws.frontier {
			mask := ws.cur[v]
			ws.cur[v] = 0
			neighbors := g.Neighbors(v)

			for mask != 0 {
				c := nextColour(&mask)
				visited := ws.visited[c]
				stream := streams[c]

				switch model {
				case diffusion.IndependentCascade:
					for _, nb := range neighbors {
						if visited.Test(uint(nb.Vertex)) {
							continue
						}
						if stream.Uniform() <= float64(nb.Weight) {
							visited.Set(uint(nb.Vertex))
							outputs[c] = append(outputs[c], nb.Vertex)
							ws.reach(nb.Vertex, colourBit(c))
						}
					}
				case diffusion.LinearThreshold:
					threshold := stream.Uniform()
					for _, nb := range neighbors {
						threshold -= float64(nb.Weight)
						if threshold > 0 {
							continue
						}
						if !visited.Test(uint(nb.Vertex)) {
							visited.Set(uint(nb.Vertex))
							outputs[c] = append(outputs[c], nb.Vertex)
							ws.reach(nb.Vertex, colourBit(c))
						}
						break
					}
				default:
					panic(fmt.Sprintf("traversal: unhandled diffusion model %d", int(model)))
				}
			}
		}
		if !ws.advance() {
			break
		}
	}

	ws.resetMatrix(outputs)
	for _, out := range outputs {
		slices.Sort(out)
	}
	return outputs, nil
}

// BatchedBFSNeighborColor samples one RR set per root using the vertex mask
// layout. For every frontier vertex it walks the neighbour list once and
// evaluates all still-active colours against each neighbour. Its outputs are
// identical to BatchedBFS for identical streams.
func BatchedBFSNeighborColor(g Graph, roots []uint32, model diffusion.Model, streams []*rng.LCG64, ws *Workspace) ([][]uint32, error) {
	if err := checkBatch(g, roots, model, streams); err != nil {
		return nil, err
	}
	ws.ensure(g.NumNodes())
	visited := ws.mask()

	outputs := ws.seed(roots, func(c int, v uint32) { visited[v] |= colourBit(c) })

	for {
		for _, v := range ws.frontier {
			mask := ws.cur[v]
			ws.cur[v] = 0
			neighbors := g.Neighbors(v)

			switch model {
			case diffusion.IndependentCascade:
				for _, nb := range neighbors {
					u := nb.Vertex
					candidates := mask &^ visited[u]
					var gained uint64
					for candidates != 0 {
						c := nextColour(&candidates)
						if streams[c].Uniform() <= float64(nb.Weight) {
							gained |= colourBit(c)
						}
					}
					if gained != 0 {
						ws.activate(u, gained, outputs)
					}
				}
			case diffusion.LinearThreshold:
				for pending := mask; pending != 0; {
					c := nextColour(&pending)
					ws.thresholds[c] = streams[c].Uniform()
				}
				active := mask
				for _, nb := range neighbors {
					if active == 0 {
						break
					}
					u := nb.Vertex
					var gained uint64
					for pending := active; pending != 0; {
						c := nextColour(&pending)
						ws.thresholds[c] -= float64(nb.Weight)
						if ws.thresholds[c] > 0 {
							continue
						}
						active &^= colourBit(c)
						if visited[u]&colourBit(c) == 0 {
							gained |= colourBit(c)
						}
					}
					if gained != 0 {
						ws.activate(u, gained, outputs)
					}
				}
			default:
				panic(fmt.Sprintf("traversal: unhandled diffusion model %d", int(model)))
			}
		}
		if !ws.advance() {
			break
		}
	}

	ws.resetMask(outputs)
	for _, out := range outputs {
		slices.Sort(out)
	}
	return outputs, nil
}

// activate records u as visited by every colour in gained.
func (ws *Workspace) activate(u uint32, gained uint64, outputs [][]uint32) {
	ws.visitedMask[u] |= gained
	ws.reach(u, gained)
	for pending := gained; pending != 0; {
		c := nextColour(&pending)
		outputs[c] = append(outputs[c], u)
	}
}
