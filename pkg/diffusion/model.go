// Package diffusion defines the stochastic diffusion models used to sample
// live-edge subgraphs.
//
// Edge weights are read differently by each model:
//
//   - IndependentCascade: the weight is the probability that the edge is live.
//   - LinearThreshold: the weight is the share of the target's threshold mass
//     contributed by the edge; at most one incoming edge is live per vertex.
package diffusion

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownModel is returned for a model tag outside the closed set.
var ErrUnknownModel = errors.New("unknown diffusion model")

// Model selects the diffusion semantics of one run.
type Model int

const (
	// IndependentCascade activates each edge independently with probability equal to its weight
	IndependentCascade Model = iota
	// LinearThreshold activates at most one incoming edge per vertex, chosen by a uniform threshold
	LinearThreshold
)

// String returns the short tag of a model
func (m Model) String() string {
	switch m {
	case IndependentCascade:
		return "ic"
	case LinearThreshold:
		return "lt"
	default:
		return "unknown"
	}
}

// Validate reports whether m is one of the defined models.
func (m Model) Validate() error {
	switch m {
	case IndependentCascade, LinearThreshold:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownModel, int(m))
	}
}

// ParseModel converts a configuration tag to a Model.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ic", "independent-cascade", "independent_cascade":
		return IndependentCascade, nil
	case "lt", "linear-threshold", "linear_threshold":
		return LinearThreshold, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Model) MarshalText() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Model) UnmarshalText(text []byte) error {
	parsed, err := ParseModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
