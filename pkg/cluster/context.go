package cluster

import "fmt"

// ExecutionContext is threaded through every sampling and selection call in
// place of process-wide state. It names the strategy, this process's place in
// the world and the number of local workers.
type ExecutionContext struct {
	Strategy  Strategy
	Rank      int
	WorldSize int
	Workers   int
	// Comm is required for Distributed and ignored otherwise.
	Comm Communicator
}

// SequentialContext returns the single-process, single-worker context.
func SequentialContext() ExecutionContext {
	return ExecutionContext{Strategy: Sequential, WorldSize: 1, Workers: 1}
}

// SharedMemoryContext returns a single-process context with workers
// goroutines.
func SharedMemoryContext(workers int) ExecutionContext {
	return ExecutionContext{Strategy: SharedMemory, WorldSize: 1, Workers: workers}
}

// DistributedContext returns the context of one rank. Rank and world size are
// taken from comm.
func DistributedContext(comm Communicator, workers int) ExecutionContext {
	return ExecutionContext{
		Strategy:  Distributed,
		Rank:      comm.Rank(),
		WorldSize: comm.Size(),
		Workers:   workers,
		Comm:      comm,
	}
}

// Validate checks the context for internal consistency. A distributed
// context whose rank or world size disagrees with its communicator is a
// topology mismatch.
func (ex ExecutionContext) Validate() error {
	if ex.WorldSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorldSize, ex.WorldSize)
	}
	if ex.Rank < 0 || ex.Rank >= ex.WorldSize {
		return fmt.Errorf("%w: rank %d, world size %d", ErrInvalidRank, ex.Rank, ex.WorldSize)
	}
	if ex.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, ex.Workers)
	}

	switch ex.Strategy {
	case Sequential, SharedMemory:
		if ex.WorldSize != 1 {
			return fmt.Errorf("%w: %s execution with world size %d", ErrTopologyMismatch, ex.Strategy, ex.WorldSize)
		}
		if ex.Strategy == Sequential && ex.Workers != 1 {
			return fmt.Errorf("%w: sequential execution with %d workers", ErrTopologyMismatch, ex.Workers)
		}
	case Distributed:
		if ex.Comm == nil {
			return ErrMissingCommunicator
		}
		if ex.Comm.Rank() != ex.Rank || ex.Comm.Size() != ex.WorldSize {
			return fmt.Errorf("%w: context rank %d/%d, communicator rank %d/%d",
				ErrTopologyMismatch, ex.Rank, ex.WorldSize, ex.Comm.Rank(), ex.Comm.Size())
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownStrategy, int(ex.Strategy))
	}
	return nil
}

// Communicator returns the communicator used for reductions: Comm for
// distributed runs, a local no-op otherwise.
func (ex ExecutionContext) Communicator() Communicator {
	if ex.Strategy == Distributed && ex.Comm != nil {
		return ex.Comm
	}
	return LocalCommunicator{}
}

// Topology returns the (world, rank, workers) triple of the context.
func (ex ExecutionContext) Topology() Topology {
	return Topology{WorldSize: ex.WorldSize, Rank: ex.Rank, Workers: ex.Workers}
}

// LocalShare returns this rank's share of a global sample target. A
// distributed rank takes the target divided by the world size plus one, which
// absorbs integer truncation; other strategies keep the whole target.
func (ex ExecutionContext) LocalShare(global uint64) uint64 {
	if ex.Strategy != Distributed {
		return global
	}
	return global/uint64(ex.WorldSize) + 1
}
