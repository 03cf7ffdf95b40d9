package selection

import (
	"context"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/dd0wney/cluso-imm/pkg/cluster"
	"github.com/dd0wney/cluso-imm/pkg/logging"
	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/rrset"
)

// Distributed selects seeds over pools that are sharded across ranks. Each
// round reduces the per-vertex gain vector across ranks, so every rank picks
// the same vertex; the covered and total set counts are reduced at the end.
// All ranks must call Select with the same k.
type Distributed struct {
	comm    cluster.Communicator
	workers int
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewDistributed creates a selector that reduces through comm.
func NewDistributed(comm cluster.Communicator, opts Options) (*Distributed, error) {
	if comm == nil {
		return nil, ErrNoCommunicator
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Distributed{
		comm:    comm,
		workers: opts.Workers,
		logger:  logging.OrNop(opts.Logger).With(logging.Component("selection"), logging.Rank(comm.Rank())),
		metrics: opts.Metrics,
	}, nil
}

// Name returns "distributed".
func (s *Distributed) Name() string { return "distributed" }

// Select picks k seeds maximising the number of covered sets summed over all
// ranks. Ties go to the smallest vertex id.
func (s *Distributed) Select(ctx context.Context, g Graph, k int, pool *rrset.Pool) (res Result, err error) {
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

	chosen := bitset.New(uint(n))
	seeds := make([]uint32, 0, k)
	for round := 0; round < k; round++ {
		global, err := s.comm.AllReduceSum(ctx, idx.counts)
		if err != nil {
			return Result{}, fmt.Errorf("reduce gains for seed %d: %w", round, err)
		}
		v := argmax(global, chosen)
		chosen.Set(uint(v))
		seeds = append(seeds, v)
		idx.cover(v)
	}

	totals, err := s.comm.AllReduceSum(ctx, []uint64{idx.nCover, uint64(len(idx.sets))})
	if err != nil {
		return Result{}, fmt.Errorf("reduce coverage: %w", err)
	}

	res = Result{Seeds: seeds, Covered: totals[0], Total: totals[1]}
	if res.Total > 0 {
		res.Coverage = float64(res.Covered) / float64(res.Total)
	}
	return res, nil
}

// argmax returns the unchosen vertex with the largest gain, preferring the
// smallest id. At least one vertex must be unchosen.
func argmax(gains []uint64, chosen *bitset.BitSet) uint32 {
	best := -1
	for v, gain := range gains {
		if chosen.Test(uint(v)) {
			continue
		}
		if best < 0 || gain > gains[best] {
			best = v
		}
	}
	return uint32(best)
}
