package cluster

import (
	"fmt"

	"github.com/dd0wney/cluso-imm/pkg/rng"
)

// ColourSlots is the number of per-colour substreams of a worker; one more
// slot draws root vertices.
const ColourSlots = 64

// Topology identifies the partition a set of streams was split for.
type Topology struct {
	WorldSize int
	Rank      int
	Workers   int
}

// WorkerStreams are the private streams of one worker. Colours[i] drives
// every draw made for colour i of a batched traversal; Roots picks root
// vertices.
type WorkerStreams struct {
	Colours []*rng.LCG64
	Roots   *rng.LCG64
}

// Streams holds the streams of every local worker together with the topology
// they were split for.
type Streams struct {
	topology Topology
	workers  []WorkerStreams
}

// PartitionStreams splits base by rank, then by worker, then into colour
// slots. For a fixed seed every (rank, worker, slot) triple receives a
// disjoint leapfrog substream. base is not modified.
func PartitionStreams(base *rng.LCG64, ex ExecutionContext) (*Streams, error) {
	if err := ex.Validate(); err != nil {
		return nil, err
	}

	rankStream := base.Clone()
	if err := rankStream.Split(ex.WorldSize, ex.Rank); err != nil {
		return nil, fmt.Errorf("split by rank: %w", err)
	}

	s := &Streams{
		topology: ex.Topology(),
		workers:  make([]WorkerStreams, ex.Workers),
	}
	for w := range s.workers {
		ws := rankStream.Clone()
		if err := ws.Split(ex.Workers, w); err != nil {
			return nil, fmt.Errorf("split by worker: %w", err)
		}
		slots, err := ws.Substreams(ColourSlots + 1)
		if err != nil {
			return nil, fmt.Errorf("split by slot: %w", err)
		}
		s.workers[w] = WorkerStreams{Colours: slots[:ColourSlots], Roots: slots[ColourSlots]}
	}
	return s, nil
}

// Topology returns the topology the streams were split for.
func (s *Streams) Topology() Topology {
	return s.topology
}

// Worker returns the streams of worker w.
func (s *Streams) Worker(w int) WorkerStreams {
	return s.workers[w]
}

// Check returns ErrTopologyMismatch if the streams were split for a
// different topology than ex describes. Sampling with mismatched streams
// would silently overlap or skip substreams.
func (s *Streams) Check(ex ExecutionContext) error {
	if got := ex.Topology(); got != s.topology {
		return fmt.Errorf("%w: streams split for %+v, context is %+v", ErrTopologyMismatch, s.topology, got)
	}
	return nil
}
