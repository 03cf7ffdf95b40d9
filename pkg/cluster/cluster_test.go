package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/rng"
	"github.com/dd0wney/cluso-imm/pkg/transport"
)

// fakeComm reports a fixed rank and size.
type fakeComm struct {
	LocalCommunicator
	rank, size int
}

func (f fakeComm) Rank() int { return f.rank }
func (f fakeComm) Size() int { return f.size }

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input string
		want  Strategy
	}{
		{"sequential", Sequential},
		{"SHARED", SharedMemory},
		{"shared-memory", SharedMemory},
		{" distributed ", Distributed},
		{"mpi", Distributed},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			var round Strategy
			text, err := got.MarshalText()
			require.NoError(t, err)
			require.NoError(t, round.UnmarshalText(text))
			assert.Equal(t, got, round)
		})
	}

	_, err := ParseStrategy("gpu")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	_, err = Strategy(7).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Equal(t, "unknown", Strategy(7).String())
}

func TestExecutionContextValidate(t *testing.T) {
	tests := []struct {
		name string
		ex   ExecutionContext
		want error
	}{
		{"sequential", SequentialContext(), nil},
		{"shared", SharedMemoryContext(8), nil},
		{"distributed", DistributedContext(fakeComm{rank: 2, size: 4}, 2), nil},
		{"zero world", ExecutionContext{Strategy: SharedMemory, Workers: 1}, ErrInvalidWorldSize},
		{"rank too large", ExecutionContext{Strategy: SharedMemory, WorldSize: 1, Rank: 1, Workers: 1}, ErrInvalidRank},
		{"no workers", SharedMemoryContext(0), ErrInvalidWorkers},
		{"sequential with workers", ExecutionContext{Strategy: Sequential, WorldSize: 1, Workers: 4}, ErrTopologyMismatch},
		{"shared with world", ExecutionContext{Strategy: SharedMemory, WorldSize: 2, Workers: 1}, ErrTopologyMismatch},
		{"distributed without comm", ExecutionContext{Strategy: Distributed, WorldSize: 2, Workers: 1}, ErrMissingCommunicator},
		{"comm disagrees", ExecutionContext{Strategy: Distributed, Rank: 1, WorldSize: 4, Workers: 1, Comm: fakeComm{rank: 1, size: 3}}, ErrTopologyMismatch},
		{"unknown strategy", ExecutionContext{Strategy: Strategy(9), WorldSize: 1, Workers: 1}, ErrUnknownStrategy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ex.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLocalShare(t *testing.T) {
	assert.Equal(t, uint64(1000), SequentialContext().LocalShare(1000))
	assert.Equal(t, uint64(1000), SharedMemoryContext(4).LocalShare(1000))

	ex := DistributedContext(fakeComm{rank: 0, size: 3}, 1)
	assert.Equal(t, uint64(334), ex.LocalShare(1000))
	assert.Equal(t, uint64(1), ex.LocalShare(0))

	single := DistributedContext(fakeComm{rank: 0, size: 1}, 1)
	assert.Equal(t, uint64(11), single.LocalShare(10))
}

func TestCommunicatorSelection(t *testing.T) {
	_, isLocal := SharedMemoryContext(2).Communicator().(LocalCommunicator)
	assert.True(t, isLocal)

	comm := fakeComm{rank: 1, size: 2}
	assert.Equal(t, comm, DistributedContext(comm, 1).Communicator())
}

func TestPartitionStreamsDisjoint(t *testing.T) {
	const world, workers, draws = 3, 2, 50
	base := rng.New(12345)
	before := *base

	seen := make(map[uint64]string)
	for rank := 0; rank < world; rank++ {
		streams, err := PartitionStreams(base, DistributedContext(fakeComm{rank: rank, size: world}, workers))
		require.NoError(t, err)

		for w := 0; w < workers; w++ {
			ws := streams.Worker(w)
			require.Len(t, ws.Colours, ColourSlots)
			all := append(ws.Colours[:ColourSlots:ColourSlots], ws.Roots)
			for slot, s := range all {
				owner := fmt.Sprintf("rank %d worker %d slot %d", rank, w, slot)
				for i := 0; i < draws; i++ {
					v := s.Next()
					if prev, dup := seen[v]; dup {
						t.Fatalf("value %d drawn by %s and %s", v, prev, owner)
					}
					seen[v] = owner
				}
			}
		}
	}
	assert.Equal(t, before, *base, "base stream must not be advanced")
}

func TestPartitionStreamsDeterministic(t *testing.T) {
	ex := SharedMemoryContext(3)
	a, err := PartitionStreams(rng.New(7), ex)
	require.NoError(t, err)
	b, err := PartitionStreams(rng.New(7), ex)
	require.NoError(t, err)

	for w := 0; w < 3; w++ {
		assert.Equal(t, a.Worker(w).Roots.Next(), b.Worker(w).Roots.Next())
		assert.Equal(t, a.Worker(w).Colours[63].Next(), b.Worker(w).Colours[63].Next())
	}
}

func TestStreamsCheck(t *testing.T) {
	streams, err := PartitionStreams(rng.New(1), SharedMemoryContext(4))
	require.NoError(t, err)

	assert.NoError(t, streams.Check(SharedMemoryContext(4)))
	assert.ErrorIs(t, streams.Check(SharedMemoryContext(2)), ErrTopologyMismatch)
	assert.ErrorIs(t, streams.Check(DistributedContext(fakeComm{rank: 0, size: 2}, 4)), ErrTopologyMismatch)

	_, err = PartitionStreams(rng.New(1), SharedMemoryContext(0))
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestCommConfigValidate(t *testing.T) {
	cfg := DefaultCommConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrMissingCoordinator)

	cfg.CoordinatorAddr = "inproc://x"
	assert.NoError(t, cfg.Validate())

	cfg.Rank = 1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidRank)
}

func TestSurveyCommunicatorThreeRanks(t *testing.T) {
	const world = 3
	factory := transport.NewNNGSocketFactory()
	addr := "inproc://cluster-survey-three-ranks"
	reg := metrics.NewRegistry()

	comms := make([]*SurveyCommunicator, world)
	for rank := 0; rank < world; rank++ {
		cfg := CommConfig{
			Rank:            rank,
			WorldSize:       world,
			CoordinatorAddr: addr,
			SurveyTimeout:   100 * time.Millisecond,
			RecvTimeout:     20 * time.Millisecond,
		}
		var opts []CommOption
		if rank == 0 {
			opts = append(opts, WithMetrics(reg))
		}
		c, err := NewSurveyCommunicator(factory, cfg, opts...)
		require.NoError(t, err)
		comms[rank] = c
	}
	defer func() {
		for _, c := range comms {
			c.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for round := 0; round < 3; round++ {
		results := make([][]uint64, world)
		errs := make([]error, world)
		var wg sync.WaitGroup
		for rank, c := range comms {
			wg.Add(1)
			go func(rank int, c *SurveyCommunicator) {
				defer wg.Done()
				local := []uint64{uint64(rank), 1, uint64(round)}
				results[rank], errs[rank] = c.AllReduceSum(ctx, local)
			}(rank, c)
		}
		wg.Wait()

		for rank := range comms {
			require.NoError(t, errs[rank])
			assert.Equal(t, []uint64{3, 3, uint64(3 * round)}, results[rank], "rank %d round %d", rank, round)
			assert.Equal(t, rank, comms[rank].Rank())
			assert.Equal(t, world, comms[rank].Size())
		}
	}

	families, err := reg.GetPrometheusRegistry().Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() == "imm_allreduce_total" {
			found = true
		}
	}
	assert.True(t, found, "coordinator should record all-reduce rounds")

	require.NoError(t, comms[1].Close())
	_, err = comms[1].AllReduceSum(ctx, []uint64{1})
	assert.True(t, errors.Is(err, ErrCommunicatorClosed))
}

func TestLocalCommunicator(t *testing.T) {
	var c Communicator = LocalCommunicator{}
	in := []uint64{1, 2}
	out, err := c.AllReduceSum(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	out[0] = 9
	assert.Equal(t, uint64(1), in[0], "result must not alias the input")
	assert.NoError(t, c.Close())
}
