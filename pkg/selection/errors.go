package selection

import "errors"

var (
	// ErrSeedCount is returned when k is not in [1, numNodes].
	ErrSeedCount = errors.New("seed count out of range")

	// ErrVertexOutOfRange is returned when an RR set names a vertex outside
	// the graph.
	ErrVertexOutOfRange = errors.New("rr set vertex out of range")

	// ErrNoCommunicator is returned when a distributed selector is built
	// without a communicator.
	ErrNoCommunicator = errors.New("distributed selection requires a communicator")
)
