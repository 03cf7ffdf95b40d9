package cluster

import (
	"fmt"
	"strings"
)

// Strategy is the execution strategy of a run.
type Strategy int

const (
	// Sequential runs on one goroutine in one process.
	Sequential Strategy = iota
	// SharedMemory forks sampling across worker goroutines in one process.
	SharedMemory
	// Distributed shards sampling across ranks, each with its own workers.
	Distributed
)

// String returns the config name of a Strategy
func (s Strategy) String() string {
	switch s {
	case Sequential:
		return "sequential"
	case SharedMemory:
		return "shared"
	case Distributed:
		return "distributed"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a config name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "seq":
		return Sequential, nil
	case "shared", "shared-memory", "shared_memory", "openmp":
		return SharedMemory, nil
	case "distributed", "mpi":
		return Distributed, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if s < Sequential || s > Distributed {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
