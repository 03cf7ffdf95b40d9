package sampling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dd0wney/cluso-imm/pkg/cluster"
	"github.com/dd0wney/cluso-imm/pkg/logging"
	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/rng"
	"github.com/dd0wney/cluso-imm/pkg/selection"
	"github.com/dd0wney/cluso-imm/pkg/traversal"
)

// Run executes influence maximisation on g: it partitions base across ranks
// and workers, builds the RR-set pool and selects the final k seeds. All
// ranks of a distributed run must call Run with the same base seed and
// options. base is not modified.
func Run(ctx context.Context, g traversal.Graph, base *rng.LCG64, ex cluster.ExecutionContext, opts Options) (rec *Record, err error) {
	started := time.Now()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	n := g.NumNodes()
	if opts.K > n {
		return nil, fmt.Errorf("%w: k=%d, numNodes=%d", ErrSeedCount, opts.K, n)
	}

	rec = &Record{
		RunID:     uuid.NewString(),
		Rank:      ex.Rank,
		WorldSize: ex.WorldSize,
		Workers:   ex.Workers,
		Model:     opts.Model.String(),
		K:         opts.K,
		Epsilon:   opts.Epsilon,
	}
	opts.L = adjustConfidence(opts.L, n)
	rec.L = opts.L
	opts.Logger = logging.OrNop(opts.Logger).With(logging.RunID(rec.RunID))
	logger := opts.Logger.With(logging.Component("imm"), logging.Rank(ex.Rank))

	tracer := opts.tracer()
	ctx, span := tracer.Start(ctx, "imm.Run",
		trace.WithAttributes(
			attribute.String("run_id", rec.RunID),
			attribute.String("strategy", ex.Strategy.String()),
			attribute.String("model", rec.Model),
			attribute.Int("rank", ex.Rank),
			attribute.Int("world_size", ex.WorldSize),
			attribute.Int("workers", ex.Workers),
			attribute.Int("k", opts.K),
		))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "imm run failed")
			logger.Error("imm run failed", logging.Error(err))
		}
	}()

	streams, err := cluster.PartitionStreams(base, ex)
	if err != nil {
		return nil, err
	}
	selector, err := selection.ForContext(ex, selection.Options{
		Workers: ex.Workers,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	sampler, err := NewSampler(g, streams, ex, selector, opts)
	if err != nil {
		return nil, err
	}
	defer sampler.Close()

	logger.Info("imm run started",
		logging.Int("num_nodes", n),
		logging.Int("k", opts.K),
		logging.Float64("epsilon", opts.Epsilon),
		logging.Float64("l", opts.L),
		logging.Model(rec.Model),
		logging.String("strategy", ex.Strategy.String()))

	pool, err := sampler.Sample(ctx, rec)
	if err != nil {
		return nil, err
	}

	selStart := time.Now()
	selCtx, selSpan := tracer.Start(ctx, "imm.FindMostInfluentialSet",
		trace.WithAttributes(attribute.Int("pool_size", pool.Len())))
	res, err := selector.Select(selCtx, g, opts.K, pool)
	if err != nil {
		selSpan.RecordError(err)
		selSpan.SetStatus(codes.Error, "seed selection failed")
		selSpan.End()
		return nil, fmt.Errorf("final seed selection: %w", err)
	}
	selSpan.SetAttributes(attribute.Float64("coverage", res.Coverage))
	selSpan.End()

	rec.FindMostInfluentialSet = time.Since(selStart)
	if opts.Metrics != nil {
		opts.Metrics.RecordPhase(metrics.PhaseSelection, rec.FindMostInfluentialSet)
	}
	rec.Seeds = res.Seeds
	rec.Coverage = res.Coverage
	rec.Total = time.Since(started)

	logger.Info("imm run finished",
		logging.Float64("coverage", rec.Coverage),
		logging.Theta(rec.Theta),
		logging.Int("pool_size", rec.PoolSize),
		logging.Duration("total", rec.Total))
	return rec, nil
}
