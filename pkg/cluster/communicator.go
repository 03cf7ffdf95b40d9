package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-imm/pkg/logging"
	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/transport"
)

// Communicator is the collective the seed-selection oracle reduces through.
// AllReduceSum is blocking: every rank must call it the same number of times
// with vectors of the same length.
type Communicator interface {
	Rank() int
	Size() int
	AllReduceSum(ctx context.Context, local []uint64) ([]uint64, error)
	Close() error
}

// LocalCommunicator is the world of one process.
type LocalCommunicator struct{}

func (LocalCommunicator) Rank() int { return 0 }
func (LocalCommunicator) Size() int { return 1 }

// AllReduceSum returns a copy of local.
func (LocalCommunicator) AllReduceSum(_ context.Context, local []uint64) ([]uint64, error) {
	out := make([]uint64, len(local))
	copy(out, local)
	return out, nil
}

func (LocalCommunicator) Close() error { return nil }

// CommConfig configures a survey-based communicator.
type CommConfig struct {
	Rank            int
	WorldSize       int
	CoordinatorAddr string        // rank 0 listens here, the others dial it
	SurveyTimeout   time.Duration // how long rank 0 waits per survey
	RecvTimeout     time.Duration // how often other ranks re-check their context
}

// DefaultCommConfig returns timeouts suited to a LAN.
func DefaultCommConfig() CommConfig {
	return CommConfig{
		WorldSize:     1,
		SurveyTimeout: time.Second,
		RecvTimeout:   250 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c CommConfig) Validate() error {
	if c.WorldSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorldSize, c.WorldSize)
	}
	if c.Rank < 0 || c.Rank >= c.WorldSize {
		return fmt.Errorf("%w: rank %d, world size %d", ErrInvalidRank, c.Rank, c.WorldSize)
	}
	if c.CoordinatorAddr == "" {
		return ErrMissingCoordinator
	}
	return nil
}

type reducer interface {
	AllReduceSum(ctx context.Context, round uint64, local []uint64) ([]uint64, transport.RoundStats, error)
	Close() error
}

// SurveyCommunicator implements Communicator over the survey all-reduce of
// package transport.
type SurveyCommunicator struct {
	rank    int
	size    int
	reducer reducer
	logger  logging.Logger
	metrics *metrics.Registry

	mu     sync.Mutex
	round  uint64
	closed bool
}

// CommOption configures a SurveyCommunicator.
type CommOption func(*SurveyCommunicator)

// WithLogger sets the communicator's logger.
func WithLogger(l logging.Logger) CommOption {
	return func(c *SurveyCommunicator) { c.logger = logging.OrNop(l) }
}

// WithMetrics records every round in reg.
func WithMetrics(reg *metrics.Registry) CommOption {
	return func(c *SurveyCommunicator) { c.metrics = reg }
}

// NewSurveyCommunicator creates the coordinator on rank 0 and a respondent
// on every other rank.
func NewSurveyCommunicator(factory transport.SocketFactory, config CommConfig, opts ...CommOption) (*SurveyCommunicator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &SurveyCommunicator{
		rank:   config.Rank,
		size:   config.WorldSize,
		logger: logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	base := c.logger
	c.logger = base.With(logging.Component("communicator"), logging.Rank(config.Rank))

	var err error
	if config.Rank == 0 {
		c.reducer, err = transport.NewSurveyor(factory, transport.SurveyorConfig{
			Address:       config.CoordinatorAddr,
			WorldSize:     config.WorldSize,
			SurveyTimeout: config.SurveyTimeout,
		}, base)
	} else {
		c.reducer, err = transport.NewRespondent(factory, transport.RespondentConfig{
			CoordinatorAddr: config.CoordinatorAddr,
			Rank:            config.Rank,
			RecvTimeout:     config.RecvTimeout,
			DrainTimeout:    config.SurveyTimeout + config.RecvTimeout,
		}, base)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info("communicator ready",
		logging.Int("world_size", config.WorldSize),
		logging.String("coordinator", config.CoordinatorAddr))
	return c, nil
}

func (c *SurveyCommunicator) Rank() int { return c.rank }
func (c *SurveyCommunicator) Size() int { return c.size }

// AllReduceSum sums local element-wise across all ranks.
func (c *SurveyCommunicator) AllReduceSum(ctx context.Context, local []uint64) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCommunicatorClosed
	}
	c.round++

	start := time.Now()
	sum, stats, err := c.reducer.AllReduceSum(ctx, c.round, local)
	elapsed := time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordAllReduce(elapsed, stats.Sent, stats.Received, err)
		c.metrics.SurveyRetries.Add(float64(stats.Retries))
	}
	if err != nil {
		c.logger.Error("all-reduce failed", logging.Uint64("round", c.round), logging.Error(err))
		return nil, fmt.Errorf("all-reduce round %d: %w", c.round, err)
	}
	c.logger.Debug("all-reduce complete",
		logging.Uint64("round", c.round),
		logging.Int("values", len(local)),
		logging.Latency(elapsed))
	return sum, nil
}

// Close releases the socket. Further reductions fail. Ranks other than 0
// first acknowledge any repeat of the last scatter, which can take up to
// SurveyTimeout+RecvTimeout.
func (c *SurveyCommunicator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.reducer.Close()
}
