package traversal

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/dd0wney/cluso-imm/pkg/pools"
)

// Workspace holds the per-worker scratch state of a batched traversal. It is
// sized for one graph and reused across calls; state touched by a call is
// reset from that call's outputs, so the cost of a reset is proportional to
// the RR sets produced rather than to the graph.
//
// A Workspace must not be shared between goroutines.
type Workspace struct {
	n int

	// colour matrix layout: visited[c] is the visited set of colour c.
	visited [MaxBatch]*bitset.BitSet

	// vertex mask layout: visitedMask[v] has bit c set once colour c reached v.
	visitedMask []uint64

	// colour masks of the current and next frontier, indexed by vertex.
	cur  []uint64
	next []uint64

	frontier     []uint32
	nextFrontier []uint32

	thresholds [MaxBatch]float64

	// putVertices returns frontier buffers to their pool.
	putVertices func([]uint32)
}

// NewWorkspace allocates scratch state for graphs with n vertices.
func NewWorkspace(n int) *Workspace {
	return &Workspace{
		n:            n,
		cur:          make([]uint64, n),
		next:         make([]uint64, n),
		frontier:     pools.GetVertices(pools.VertexSmall),
		nextFrontier: pools.GetVertices(pools.VertexSmall),
		putVertices:  pools.PutVertices,
	}
}

// Release hands the frontier buffers back to the shared pool. The workspace
// must not be used afterwards.
func (ws *Workspace) Release() {
	if ws.frontier != nil {
		ws.putVertices(ws.frontier)
	}
	if ws.nextFrontier != nil {
		ws.putVertices(ws.nextFrontier)
	}
	ws.frontier, ws.nextFrontier = nil, nil
}

// ensure resizes the workspace if the graph does not match. The old
// frontier buffers go back to the pool first.
func (ws *Workspace) ensure(n int) {
	if ws.n == n && ws.cur != nil {
		return
	}
	put := ws.putVertices
	ws.Release()
	*ws = *NewWorkspace(n)
	if put != nil {
		ws.putVertices = put
	}
}

func (ws *Workspace) colour(c int) *bitset.BitSet {
	if ws.visited[c] == nil {
		ws.visited[c] = bitset.New(uint(ws.n))
	}
	return ws.visited[c]
}

func (ws *Workspace) mask() []uint64 {
	if ws.visitedMask == nil {
		ws.visitedMask = make([]uint64, ws.n)
	}
	return ws.visitedMask
}

// resetMatrix clears the visited bits set by a colour matrix traversal.
func (ws *Workspace) resetMatrix(outputs [][]uint32) {
	for c, out := range outputs {
		bs := ws.visited[c]
		for _, v := range out {
			bs.Clear(uint(v))
		}
	}
}

// resetMask clears the visited masks set by a vertex mask traversal.
func (ws *Workspace) resetMask(outputs [][]uint32) {
	for _, out := range outputs {
		for _, v := range out {
			ws.visitedMask[v] = 0
		}
	}
}
