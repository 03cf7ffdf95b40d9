package sampling

import (
	"errors"

	"github.com/dd0wney/cluso-imm/pkg/selection"
)

var (
	// ErrSeedCount is returned when k is not in [1, numNodes].
	ErrSeedCount = selection.ErrSeedCount

	// ErrInvalidParameter is returned for a non-positive epsilon or l.
	ErrInvalidParameter = errors.New("invalid sampling parameter")

	// ErrSampleTargetTooLarge is returned when a sample target cannot be
	// held in memory, typically because epsilon is tiny.
	ErrSampleTargetTooLarge = errors.New("sample target too large")
)
