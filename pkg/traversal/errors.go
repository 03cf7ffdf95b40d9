package traversal

import "errors"

// Precondition errors. Callers are expected to check batch size and stream
// count before entering the traversal; these are not recoverable mid-run.
var (
	ErrBatchSize      = errors.New("batch must hold between 1 and 64 roots")
	ErrStreamCount    = errors.New("not enough random streams for batch")
	ErrRootOutOfRange = errors.New("root vertex out of range")
	ErrUnknownLayout  = errors.New("unknown traversal layout")
)
