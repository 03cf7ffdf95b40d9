package graph

import "errors"

// Construction errors
var (
	ErrVertexOutOfRange = errors.New("vertex out of range")
	ErrInvalidWeight    = errors.New("edge weight must be within [0, 1]")
	ErrTooManyVertices  = errors.New("vertex count exceeds uint32 range")
	ErrEmptyGraph       = errors.New("graph has no vertices")
)
