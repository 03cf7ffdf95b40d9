package selection

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-imm/pkg/cluster"
	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/rng"
	"github.com/dd0wney/cluso-imm/pkg/rrset"
	"github.com/dd0wney/cluso-imm/pkg/transport"
)

type nodes int

func (n nodes) NumNodes() int { return int(n) }

func poolOf(sets ...rrset.Set) *rrset.Pool {
	p := rrset.NewPool(len(sets))
	p.Append(sets...)
	return p
}

// naiveGreedy recomputes every gain each round.
func naiveGreedy(n, k int, sets []rrset.Set) ([]uint32, uint64) {
	covered := make([]bool, len(sets))
	var seeds []uint32
	var total uint64
	for len(seeds) < k {
		gains := make([]uint64, n)
		for s, set := range sets {
			if covered[s] {
				continue
			}
			for _, v := range set {
				gains[v]++
			}
		}
		best := -1
		for v := 0; v < n; v++ {
			if slices.Contains(seeds, uint32(v)) {
				continue
			}
			if best < 0 || gains[v] > gains[best] {
				best = v
			}
		}
		seeds = append(seeds, uint32(best))
		for s, set := range sets {
			if !covered[s] && set.Contains(uint32(best)) {
				covered[s] = true
				total++
			}
		}
	}
	return seeds, total
}

func TestGreedySelect(t *testing.T) {
	pool := poolOf(
		rrset.Set{0, 1},
		rrset.Set{1, 2},
		rrset.Set{1},
		rrset.Set{3},
		rrset.Set{3, 4},
	)

	tests := []struct {
		name     string
		k        int
		seeds    []uint32
		coverage float64
	}{
		{"one seed", 1, []uint32{1}, 0.6},
		{"two seeds", 2, []uint32{1, 3}, 1.0},
		{"extra seeds have zero gain", 4, []uint32{1, 3, 0, 2}, 1.0},
	}

	for _, workers := range []int{1, 3} {
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s/workers=%d", tt.name, workers), func(t *testing.T) {
				res, err := NewGreedy(Options{Workers: workers}).Select(context.Background(), nodes(5), tt.k, pool)
				require.NoError(t, err)
				assert.Equal(t, tt.seeds, res.Seeds)
				assert.InDelta(t, tt.coverage, res.Coverage, 1e-12)
				assert.Equal(t, uint64(5), res.Total)
			})
		}
	}
}

func TestGreedyTieBreaksBySmallestVertex(t *testing.T) {
	pool := poolOf(rrset.Set{4}, rrset.Set{2}, rrset.Set{7})
	res, err := NewGreedy(DefaultOptions()).Select(context.Background(), nodes(8), 2, pool)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 4}, res.Seeds)
}

func TestSelectEmptyPool(t *testing.T) {
	res, err := NewGreedy(DefaultOptions()).Select(context.Background(), nodes(3), 2, rrset.NewPool(0))
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, res.Seeds)
	assert.Zero(t, res.Coverage)
	assert.Zero(t, res.Total)
}

func TestSelectPreconditions(t *testing.T) {
	ctx := context.Background()
	pool := poolOf(rrset.Set{0})

	for _, k := range []int{0, -1, 4} {
		_, err := NewGreedy(DefaultOptions()).Select(ctx, nodes(3), k, pool)
		assert.ErrorIs(t, err, ErrSeedCount, "k=%d", k)
	}

	_, err := NewGreedy(Options{Workers: 2}).Select(ctx, nodes(3), 1, poolOf(rrset.Set{1}, rrset.Set{0, 9}))
	assert.ErrorIs(t, err, ErrVertexOutOfRange)

	_, err = NewDistributed(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoCommunicator)
}

func TestSelectRecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	_, err := NewGreedy(Options{Metrics: reg}).Select(context.Background(), nodes(2), 1, poolOf(rrset.Set{1}))
	require.NoError(t, err)

	families, err := reg.GetPrometheusRegistry().Gather()
	require.NoError(t, err)
	var coverage float64
	for _, mf := range families {
		if mf.GetName() == "imm_coverage_fraction" {
			coverage = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 1.0, coverage)
}

func TestForContext(t *testing.T) {
	sel, err := ForContext(cluster.SharedMemoryContext(4), Options{})
	require.NoError(t, err)
	assert.Equal(t, "greedy", sel.Name())
	assert.Equal(t, 4, sel.(*Greedy).workers)

	_, err = ForContext(cluster.ExecutionContext{Strategy: cluster.Distributed, WorldSize: 1, Workers: 1}, Options{})
	assert.ErrorIs(t, err, cluster.ErrMissingCommunicator)

	res, err := FindMostInfluentialSet(context.Background(), nodes(3), 1, poolOf(rrset.Set{2}), cluster.SequentialContext(), Options{})
	require.NoError(t, err)
	assert.Equal(t, []uint32{2}, res.Seeds)
}

type poolCase struct {
	n    int
	k    int
	sets []rrset.Set
}

func randomSets(r *rng.LCG64, n, count int) []rrset.Set {
	sets := make([]rrset.Set, count)
	for i := range sets {
		size := 1 + r.IntN(min(n, 6))
		set := make(rrset.Set, 0, size)
		for j := 0; j < size; j++ {
			set = append(set, uint32(r.IntN(n)))
		}
		slices.Sort(set)
		sets[i] = slices.Compact(set)
	}
	return sets
}

func genPoolCase() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 40),
		gen.IntRange(0, 150),
		gen.IntRange(1, 6),
		gen.UInt64(),
	).Map(func(vals []interface{}) poolCase {
		n := vals[0].(int)
		return poolCase{
			n:    n,
			k:    min(vals[2].(int), n),
			sets: randomSets(rng.New(vals[3].(uint64)), n, vals[1].(int)),
		}
	})
}

func TestSelectionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 80
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("lazy greedy matches plain greedy", prop.ForAll(
		func(pc poolCase) bool {
			res, err := NewGreedy(Options{Workers: 3}).Select(ctx, nodes(pc.n), pc.k, poolOf(pc.sets...))
			if err != nil {
				return false
			}
			seeds, covered := naiveGreedy(pc.n, pc.k, pc.sets)
			return slices.Equal(seeds, res.Seeds) && covered == res.Covered
		},
		genPoolCase(),
	))

	properties.Property("distributed selection on one rank matches greedy", prop.ForAll(
		func(pc poolCase) bool {
			pool := poolOf(pc.sets...)
			g, err := NewGreedy(DefaultOptions()).Select(ctx, nodes(pc.n), pc.k, pool)
			if err != nil {
				return false
			}
			sel, err := NewDistributed(cluster.LocalCommunicator{}, DefaultOptions())
			if err != nil {
				return false
			}
			d, err := sel.Select(ctx, nodes(pc.n), pc.k, pool)
			return err == nil && slices.Equal(g.Seeds, d.Seeds) && g.Coverage == d.Coverage
		},
		genPoolCase(),
	))

	properties.Property("a single seed never covers fewer sets of a larger pool", prop.ForAll(
		func(pc poolCase, extra uint64) bool {
			pool := poolOf(pc.sets...)
			before, err := NewGreedy(DefaultOptions()).Select(ctx, nodes(pc.n), 1, pool)
			if err != nil {
				return false
			}
			pool.Append(randomSets(rng.New(extra), pc.n, 20)...)
			after, err := NewGreedy(DefaultOptions()).Select(ctx, nodes(pc.n), 1, pool)
			return err == nil && after.Covered >= before.Covered
		},
		genPoolCase(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestDistributedMatchesGreedyOnUnion(t *testing.T) {
	const world, n, k = 3, 30, 4
	shards := make([][]rrset.Set, world)
	var union []rrset.Set
	for rank := range shards {
		shards[rank] = randomSets(rng.New(uint64(100+rank)), n, 60)
		union = append(union, shards[rank]...)
	}
	want, err := NewGreedy(DefaultOptions()).Select(context.Background(), nodes(n), k, poolOf(union...))
	require.NoError(t, err)

	factory := transport.NewNNGSocketFactory()
	comms := make([]*cluster.SurveyCommunicator, world)
	for rank := range comms {
		c, err := cluster.NewSurveyCommunicator(factory, cluster.CommConfig{
			Rank:            rank,
			WorldSize:       world,
			CoordinatorAddr: "inproc://selection-distributed-union",
			SurveyTimeout:   100 * time.Millisecond,
			RecvTimeout:     20 * time.Millisecond,
		})
		require.NoError(t, err)
		comms[rank] = c
	}
	defer func() {
		for _, c := range comms {
			c.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	results := make([]Result, world)
	errs := make([]error, world)
	var wg sync.WaitGroup
	for rank := range comms {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			sel, err := NewDistributed(comms[rank], Options{Workers: 2})
			if err != nil {
				errs[rank] = err
				return
			}
			results[rank], errs[rank] = sel.Select(ctx, nodes(n), k, poolOf(shards[rank]...))
		}(rank)
	}
	wg.Wait()

	for rank := range comms {
		require.NoError(t, errs[rank])
		assert.Equal(t, want.Seeds, results[rank].Seeds, "rank %d", rank)
		assert.Equal(t, want.Covered, results[rank].Covered)
		assert.Equal(t, uint64(world*60), results[rank].Total)
		assert.Equal(t, want.Coverage, results[rank].Coverage)
	}
}
