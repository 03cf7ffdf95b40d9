package cluster

import "errors"

// Execution context errors
var (
	ErrUnknownStrategy     = errors.New("unknown execution strategy")
	ErrInvalidWorldSize    = errors.New("world size must be at least 1")
	ErrInvalidRank         = errors.New("rank must be within [0, world size)")
	ErrInvalidWorkers      = errors.New("worker count must be at least 1")
	ErrMissingCommunicator = errors.New("distributed execution requires a communicator")
	ErrTopologyMismatch    = errors.New("stream topology does not match execution context")
)

// Communicator errors
var (
	ErrMissingCoordinator = errors.New("coordinator address cannot be empty")
	ErrCommunicatorClosed = errors.New("communicator is closed")
)
