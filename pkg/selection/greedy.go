package selection

import (
	"context"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/dd0wney/cluso-imm/pkg/logging"
	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/rrset"
)

// Greedy is the single-process selector. It runs lazy greedy maximum
// coverage: heap entries hold possibly stale gains, which only ever shrink,
// so an entry whose gain is still current when popped is the true maximum.
type Greedy struct {
	workers int
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewGreedy creates a lazy greedy selector.
func NewGreedy(opts Options) *Greedy {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Greedy{
		workers: opts.Workers,
		logger:  logging.OrNop(opts.Logger).With(logging.Component("selection")),
		metrics: opts.Metrics,
	}
}

// Name returns "greedy".
func (s *Greedy) Name() string { return "greedy" }

type candidate struct {
	vertex uint32
	gain   uint64
}

// byGainThenID orders larger gains first and breaks ties by smaller vertex.
func byGainThenID(a, b interface{}) int {
	x, y := a.(candidate), b.(candidate)
	switch {
	case x.gain > y.gain:
		return -1
	case x.gain < y.gain:
		return 1
	case x.vertex < y.vertex:
		return -1
	case x.vertex > y.vertex:
		return 1
	default:
		return 0
	}
}

// Select picks k seeds maximising the number of covered sets in pool. Ties
// go to the smallest vertex id.
func (s *Greedy) Select(ctx context.Context, g Graph, k int, pool *rrset.Pool) (res Result, err error) {
	timer := logging.StartTimer(s.logger, "seed selection", logging.Int("k", k), logging.Count(pool.Len()))
	defer func() { record(s.metrics, s.Name(), res, timer, err) }()

	if err = checkSeedCount(g, k); err != nil {
		return Result{}, err
	}
	n := g.NumNodes()
	idx, err := buildIndex(ctx, n, pool, s.workers, s.logger)
	if err != nil {
		return Result{}, err
	}

	heap := binaryheap.NewWith(byGainThenID)
	for v := 0; v < n; v++ {
		heap.Push(candidate{vertex: uint32(v), gain: idx.counts[v]})
	}

	seeds := make([]uint32, 0, k)
	for len(seeds) < k {
		if err = ctx.Err(); err != nil {
			return Result{}, err
		}
		top, _ := heap.Pop()
		c := top.(candidate)
		if current := idx.counts[c.vertex]; current != c.gain {
			c.gain = current
			heap.Push(c)
			continue
		}
		seeds = append(seeds, c.vertex)
		idx.cover(c.vertex)
	}

	res = Result{Seeds: seeds, Covered: idx.nCover, Total: uint64(len(idx.sets))}
	if res.Total > 0 {
		res.Coverage = float64(res.Covered) / float64(res.Total)
	}
	return res, nil
}
