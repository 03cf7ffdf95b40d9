package sampling

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-imm/pkg/cluster"
	"github.com/dd0wney/cluso-imm/pkg/diffusion"
	"github.com/dd0wney/cluso-imm/pkg/graph"
	"github.com/dd0wney/cluso-imm/pkg/logging"
	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/rrset"
	"github.com/dd0wney/cluso-imm/pkg/traversal"
)

// GeneratorOptions configures RR-set generation.
type GeneratorOptions struct {
	Model     diffusion.Model
	Layout    traversal.Layout
	BatchSize int // roots per traversal, 1..64
	Logger    logging.Logger
	Metrics   *metrics.Registry
}

// Generator samples RR sets on the local workers of one rank. Batch b of a
// request is sampled by worker b mod W, so for a fixed seed and topology the
// sets come out identical on every run.
type Generator struct {
	g          traversal.Graph
	model      diffusion.Model
	layout     traversal.Layout
	batchSize  int
	streams    *cluster.Streams
	workspaces []*traversal.Workspace
	logger     logging.Logger
	metrics    *metrics.Registry
}

// NewGenerator checks streams against ex and allocates one traversal
// workspace per worker.
func NewGenerator(g traversal.Graph, streams *cluster.Streams, ex cluster.ExecutionContext, opts GeneratorOptions) (*Generator, error) {
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	if err := streams.Check(ex); err != nil {
		return nil, err
	}
	if err := opts.Model.Validate(); err != nil {
		return nil, err
	}
	if opts.BatchSize < 1 || opts.BatchSize > traversal.MaxBatch {
		return nil, fmt.Errorf("%w: batch size %d", traversal.ErrBatchSize, opts.BatchSize)
	}
	n := g.NumNodes()
	if n == 0 {
		return nil, graph.ErrEmptyGraph
	}

	gen := &Generator{
		g:          g,
		model:      opts.Model,
		layout:     opts.Layout,
		batchSize:  opts.BatchSize,
		streams:    streams,
		workspaces: make([]*traversal.Workspace, ex.Workers),
		logger:     logging.OrNop(opts.Logger).With(logging.Component("generator"), logging.Model(opts.Model.String())),
		metrics:    opts.Metrics,
	}
	for w := range gen.workspaces {
		gen.workspaces[w] = traversal.NewWorkspace(n)
	}
	return gen, nil
}

// Generate samples count RR sets with roots drawn uniformly from [0, n).
func (gen *Generator) Generate(ctx context.Context, count int) ([]rrset.Set, error) {
	if count <= 0 {
		return nil, nil
	}

	batches := (count + gen.batchSize - 1) / gen.batchSize
	results := make([][]rrset.Set, batches)
	n := gen.g.NumNodes()

	group, ctx := errgroup.WithContext(ctx)
	for w := range gen.workspaces {
		group.Go(func() error {
			ws := gen.workspaces[w]
			streams := gen.streams.Worker(w)
			roots := make([]uint32, gen.batchSize)

			for b := w; b < batches; b += len(gen.workspaces) {
				if err := ctx.Err(); err != nil {
					return err
				}
				m := min(gen.batchSize, count-b*gen.batchSize)
				for i := range roots[:m] {
					roots[i] = uint32(streams.Roots.IntN(n))
				}

				start := time.Now()
				out, err := gen.layout.Traverse(gen.g, roots[:m], gen.model, streams.Colours, ws)
				if err != nil {
					return fmt.Errorf("worker %d batch %d: %w", w, b, err)
				}

				sets := make([]rrset.Set, m)
				sizes := make([]int, m)
				for i, o := range out {
					sets[i] = o
					sizes[i] = len(o)
				}
				results[b] = sets
				if gen.metrics != nil {
					gen.metrics.RecordBatch(gen.layout.String(), gen.model.String(), time.Since(start), sizes)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sets := make([]rrset.Set, 0, count)
	for _, r := range results {
		sets = append(sets, r...)
	}
	gen.logger.Debug("rr sets generated", logging.Count(count), logging.Int("batches", batches))
	return sets, nil
}

// Extend grows pool to at least target sets and returns how many were
// added. The pool is never shrunk. A shortfall above math.MaxInt sets is
// rejected with ErrSampleTargetTooLarge.
func (gen *Generator) Extend(ctx context.Context, pool *rrset.Pool, target uint64) (int, error) {
	if uint64(pool.Len()) >= target {
		return 0, nil
	}
	shortfall := target - uint64(pool.Len())
	if shortfall > math.MaxInt {
		return 0, fmt.Errorf("%w: %d sets requested, pool holds %d", ErrSampleTargetTooLarge, target, pool.Len())
	}
	delta := int(shortfall)
	sets, err := gen.Generate(ctx, delta)
	if err != nil {
		return 0, err
	}
	pool.Grow(len(sets))
	pool.Append(sets...)
	if gen.metrics != nil {
		gen.metrics.PoolSize.Set(float64(pool.Len()))
	}
	return len(sets), nil
}

// Close returns the workspaces' scratch buffers to their pools.
func (gen *Generator) Close() {
	for _, ws := range gen.workspaces {
		ws.Release()
	}
}
