package sampling

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dd0wney/cluso-imm/pkg/cluster"
	"github.com/dd0wney/cluso-imm/pkg/diffusion"
	"github.com/dd0wney/cluso-imm/pkg/logging"
	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/rrset"
	"github.com/dd0wney/cluso-imm/pkg/selection"
	"github.com/dd0wney/cluso-imm/pkg/traversal"
	"github.com/dd0wney/cluso-imm/pkg/validation"
)

const tracerName = "github.com/dd0wney/cluso-imm/pkg/sampling"

// Options configures a sampling run.
type Options struct {
	K         int     // seed set size
	Epsilon   float64 // approximation parameter
	L         float64 // confidence parameter, failure probability n^-l
	Model     diffusion.Model
	Layout    traversal.Layout
	BatchSize int
	Logger    logging.Logger
	Metrics   *metrics.Registry
	// TracerProvider receives the run's spans; nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// DefaultOptions returns IC sampling with full batches.
func DefaultOptions() Options {
	return Options{
		K:         10,
		Epsilon:   0.13,
		L:         1,
		Model:     diffusion.IndependentCascade,
		Layout:    traversal.ColourMatrix,
		BatchSize: traversal.MaxBatch,
	}
}

// Validate checks the options, joining every violation.
func (o Options) Validate() error {
	return validation.NewConfigValidator("sampling").
		Custom("k", func() error {
			if o.K < 1 {
				return fmt.Errorf("%w: k=%d", ErrSeedCount, o.K)
			}
			return nil
		}).
		Custom("epsilon", func() error { return positive(o.Epsilon) }).
		Custom("l", func() error { return positive(o.L) }).
		Custom("model", o.Model.Validate).
		RangeInt("batch_size", o.BatchSize, 1, traversal.MaxBatch).
		Custom("layout", func() error {
			_, err := traversal.ParseLayout(o.Layout.String())
			return err
		}).
		Validate()
}

func positive(v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, v)
	}
	return nil
}

func (o Options) tracer() trace.Tracer {
	tp := o.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(tracerName)
}

func (o Options) generatorOptions() GeneratorOptions {
	return GeneratorOptions{
		Model:     o.Model,
		Layout:    o.Layout,
		BatchSize: o.BatchSize,
		Logger:    o.Logger,
		Metrics:   o.Metrics,
	}
}

// Sampler runs the two sampling phases: the doubling bound search and the
// bulk pass.
type Sampler struct {
	g        traversal.Graph
	gen      *Generator
	selector selection.Selector
	ex       cluster.ExecutionContext
	opts     Options
	logger   logging.Logger
	tracer   trace.Tracer
}

// NewSampler creates a sampler over g. opts.L is used as given; Run applies
// the confidence adjustment before calling it.
func NewSampler(g traversal.Graph, streams *cluster.Streams, ex cluster.ExecutionContext, selector selection.Selector, opts Options) (*Sampler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	gen, err := NewGenerator(g, streams, ex, opts.generatorOptions())
	if err != nil {
		return nil, err
	}
	return &Sampler{
		g:        g,
		gen:      gen,
		selector: selector,
		ex:       ex,
		opts:     opts,
		logger:   logging.OrNop(opts.Logger).With(logging.Component("sampler"), logging.Rank(ex.Rank)),
		tracer:   opts.tracer(),
	}, nil
}

// Close releases the generator's scratch buffers.
func (s *Sampler) Close() {
	s.gen.Close()
}

// Sample builds the RR-set pool. Iterations, the lower bound, theta and the
// phase durations are written to rec.
func (s *Sampler) Sample(ctx context.Context, rec *Record) (*rrset.Pool, error) {
	pool := rrset.NewPool(0)

	start := time.Now()
	lb, err := s.boundSearch(ctx, pool, rec)
	if err != nil {
		return nil, err
	}
	theta := Theta(s.opts.Epsilon, s.opts.L, s.opts.K, lb, s.g.NumNodes())
	rec.LowerBound = lb
	rec.Theta = theta
	rec.ThetaEstimation = time.Since(start)
	s.observePhase(metrics.PhaseBoundSearch, rec.ThetaEstimation)
	if s.opts.Metrics != nil {
		s.opts.Metrics.LowerBound.Set(lb)
	}

	start = time.Now()
	if err := s.bulk(ctx, pool, theta); err != nil {
		return nil, err
	}
	rec.GenerateRRSets = time.Since(start)
	rec.PoolSize = pool.Len()
	s.observePhase(metrics.PhaseBulk, rec.GenerateRRSets)
	return pool, nil
}

// boundSearch doubles the sample requirement until the coverage of the best
// seed set reaches 2^-x, and returns the lower bound on the optimal spread.
// It returns 0 if the loop runs out, which is always the case for n < 2.
func (s *Sampler) boundSearch(ctx context.Context, pool *rrset.Pool, rec *Record) (lb float64, err error) {
	n := s.g.NumNodes()
	epsPrime := math.Sqrt2 * s.opts.Epsilon

	ctx, span := s.tracer.Start(ctx, "imm.BoundSearch",
		trace.WithAttributes(
			attribute.Int("k", s.opts.K),
			attribute.Int("num_nodes", n),
			attribute.Float64("epsilon_prime", epsPrime),
		))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "bound search failed")
		}
	}()

	timer := logging.StartTimer(s.logger, "bound search", logging.Int("num_nodes", n))
	for x := 1; float64(x) < math.Log2(float64(n)); x++ {
		thetaPrime := ThetaPrime(x, epsPrime, s.opts.L, s.opts.K, n)
		target := s.ex.LocalShare(thetaPrime)
		if s.opts.Metrics != nil {
			s.opts.Metrics.RecordSampleTarget(metrics.PhaseBoundSearch, target, pool.Len())
			s.opts.Metrics.BoundSearchRounds.Inc()
		}

		it := Iteration{X: x, ThetaPrime: thetaPrime}
		genStart := time.Now()
		it.Delta, err = s.gen.Extend(ctx, pool, target)
		if err != nil {
			timer.EndError(err)
			return 0, fmt.Errorf("bound search iteration %d: %w", x, err)
		}
		it.Generate = time.Since(genStart)
		it.PoolSize = pool.Len()

		selStart := time.Now()
		res, err := s.selector.Select(ctx, s.g, s.opts.K, pool)
		if err != nil {
			timer.EndError(err)
			return 0, fmt.Errorf("bound search iteration %d: %w", x, err)
		}
		it.Select = time.Since(selStart)
		it.Coverage = res.Coverage
		rec.Iterations = append(rec.Iterations, it)

		s.logger.Debug("bound search iteration",
			logging.Iteration(x),
			logging.Theta(thetaPrime),
			logging.Int("pool_size", it.PoolSize),
			logging.Float64("coverage", it.Coverage))

		if res.Coverage >= math.Exp2(-float64(x)) {
			lb = float64(n) * res.Coverage / (1 + epsPrime)
			break
		}
	}

	span.SetAttributes(
		attribute.Int("iterations", len(rec.Iterations)),
		attribute.Float64("lower_bound", lb),
	)
	timer.End(logging.Int("iterations", len(rec.Iterations)), logging.Float64("lower_bound", lb))
	return lb, nil
}

// bulk tops the pool up to this rank's share of theta.
func (s *Sampler) bulk(ctx context.Context, pool *rrset.Pool, theta uint64) (err error) {
	ctx, span := s.tracer.Start(ctx, "imm.Bulk", trace.WithAttributes(attribute.Int64("theta", int64(min(theta, math.MaxInt64)))))
	defer span.End()

	if theta == 0 {
		span.SetAttributes(attribute.Int("added", 0), attribute.Int("pool_size", pool.Len()))
		return nil
	}
	target := s.ex.LocalShare(theta)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordSampleTarget(metrics.PhaseBulk, target, pool.Len())
	}

	timer := logging.StartTimer(s.logger, "bulk sampling", logging.Theta(theta), logging.Uint64("local_target", target))
	added, err := s.gen.Extend(ctx, pool, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk sampling failed")
		timer.EndError(err)
		return fmt.Errorf("bulk sampling: %w", err)
	}
	span.SetAttributes(attribute.Int("added", added), attribute.Int("pool_size", pool.Len()))
	timer.End(logging.Int("added", added), logging.Int("pool_size", pool.Len()))
	return nil
}

func (s *Sampler) observePhase(phase string, d time.Duration) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordPhase(phase, d)
	}
}
