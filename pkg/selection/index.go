package selection

import (
	"context"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/dd0wney/cluso-imm/pkg/logging"
	"github.com/dd0wney/cluso-imm/pkg/parallel"
	"github.com/dd0wney/cluso-imm/pkg/pools"
	"github.com/dd0wney/cluso-imm/pkg/rrset"
)

// coverageIndex tracks, for every vertex, how many still-uncovered RR sets
// contain it. Covering a vertex marks its sets covered and decrements the
// counts of every vertex in them, so counts[v] is always the exact marginal
// gain of v.
type coverageIndex struct {
	sets    []rrset.Set
	counts  []uint64
	offsets []int    // len n+1, into members
	members []uint32 // set ids grouped by vertex
	covered *bitset.BitSet
	nCover  uint64
}

// buildIndex counts vertex occurrences across pool on workers goroutines and
// inverts the pool into per-vertex set lists.
func buildIndex(ctx context.Context, n int, pool *rrset.Pool, workers int, logger logging.Logger) (*coverageIndex, error) {
	sets := pool.Sets()
	idx := &coverageIndex{
		sets:    sets,
		counts:  make([]uint64, n),
		offsets: make([]int, n+1),
		covered: bitset.New(uint(len(sets))),
	}

	if err := idx.count(ctx, n, workers, logger); err != nil {
		return nil, err
	}

	for v := 0; v < n; v++ {
		idx.offsets[v+1] = idx.offsets[v] + int(idx.counts[v])
	}
	idx.members = make([]uint32, idx.offsets[n])
	cursor := pools.GetCounts(n)
	defer pools.PutCounts(cursor)
	for s, set := range sets {
		for _, v := range set {
			idx.members[idx.offsets[v]+int(cursor[v])] = uint32(s)
			cursor[v]++
		}
	}
	return idx, nil
}

func (idx *coverageIndex) count(ctx context.Context, n, workers int, logger logging.Logger) error {
	ranges := parallel.Chunks(len(idx.sets), workers)
	if len(ranges) == 0 {
		return nil
	}

	wp, err := parallel.NewWorkerPool(len(ranges), logger)
	if err != nil {
		return err
	}
	defer wp.Close()

	partial := make([][]uint64, len(ranges))
	bad := make([]error, len(ranges))
	err = wp.Run(ranges, func(i int, r parallel.Range) {
		local := pools.GetCounts(n)
		for s := r.Start; s < r.End; s++ {
			for _, v := range idx.sets[s] {
				if int(v) >= n {
					bad[i] = fmt.Errorf("%w: set %d holds %d, numNodes=%d", ErrVertexOutOfRange, s, v, n)
					break
				}
				local[v]++
			}
		}
		partial[i] = local
	})
	if err != nil {
		return err
	}

	for i, local := range partial {
		if bad[i] == nil {
			for v, c := range local {
				idx.counts[v] += c
			}
		}
		pools.PutCounts(local)
	}
	for _, e := range bad {
		if e != nil {
			return e
		}
	}
	return ctx.Err()
}

// cover marks every uncovered set containing v as covered.
func (idx *coverageIndex) cover(v uint32) {
	for _, s := range idx.members[idx.offsets[v]:idx.offsets[v+1]] {
		if idx.covered.Test(uint(s)) {
			continue
		}
		idx.covered.Set(uint(s))
		idx.nCover++
		for _, u := range idx.sets[s] {
			idx.counts[u]--
		}
	}
}
