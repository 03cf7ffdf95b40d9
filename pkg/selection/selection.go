// Package selection finds the k vertices that cover the most RR sets of a
// pool. The fraction of covered sets estimates the normalised influence of
// the seed set.
package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-imm/pkg/cluster"
	"github.com/dd0wney/cluso-imm/pkg/logging"
	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/rrset"
)

// Graph is the part of the influence graph selection needs.
type Graph interface {
	NumNodes() int
}

// Result is the outcome of one selection.
type Result struct {
	Seeds    []uint32 // in selection order
	Coverage float64  // Covered / Total, 0 for an empty pool
	Covered  uint64   // RR sets containing at least one seed, summed over ranks
	Total    uint64   // RR sets in the pool, summed over ranks
}

// Selector is the seed-selection oracle. It may be called repeatedly on a
// growing pool; each call starts from scratch.
type Selector interface {
	Select(ctx context.Context, g Graph, k int, pool *rrset.Pool) (Result, error)
	Name() string
}

// Options configures a selector.
type Options struct {
	Workers int // goroutines used to count coverage, at least 1
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// DefaultOptions returns single-worker options without logging or metrics.
func DefaultOptions() Options {
	return Options{Workers: 1}
}

// ForContext returns the selector matching the strategy of ex: lazy greedy
// for a single process, all-reduce greedy for a distributed run. Workers
// defaults to ex.Workers.
func ForContext(ex cluster.ExecutionContext, opts Options) (Selector, error) {
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		opts.Workers = ex.Workers
	}

	switch ex.Strategy {
	case cluster.Sequential, cluster.SharedMemory:
		return NewGreedy(opts), nil
	case cluster.Distributed:
		return NewDistributed(ex.Comm, opts)
	default:
		return nil, fmt.Errorf("%w: %d", cluster.ErrUnknownStrategy, int(ex.Strategy))
	}
}

// FindMostInfluentialSet selects k seeds from pool with the selector for ex.
func FindMostInfluentialSet(ctx context.Context, g Graph, k int, pool *rrset.Pool, ex cluster.ExecutionContext, opts Options) (Result, error) {
	sel, err := ForContext(ex, opts)
	if err != nil {
		return Result{}, err
	}
	return sel.Select(ctx, g, k, pool)
}

func checkSeedCount(g Graph, k int) error {
	if n := g.NumNodes(); k < 1 || k > n {
		return fmt.Errorf("%w: k=%d, numNodes=%d", ErrSeedCount, k, n)
	}
	return nil
}

func record(reg *metrics.Registry, name string, res Result, timer *logging.TimedOperation, err error) {
	var d time.Duration
	if err != nil {
		d = timer.EndError(err)
	} else {
		d = timer.End(logging.Float64("coverage", res.Coverage), logging.Count(len(res.Seeds)))
	}
	if reg != nil {
		reg.RecordSelection(name, res.Coverage, d, err)
	}
}
