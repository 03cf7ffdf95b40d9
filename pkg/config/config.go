// Package config loads and validates the YAML configuration of an IMM run.
package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-imm/pkg/cluster"
	"github.com/dd0wney/cluso-imm/pkg/diffusion"
	"github.com/dd0wney/cluso-imm/pkg/graph"
	"github.com/dd0wney/cluso-imm/pkg/logging"
	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/sampling"
	"github.com/dd0wney/cluso-imm/pkg/tracing"
	"github.com/dd0wney/cluso-imm/pkg/traversal"
	"github.com/dd0wney/cluso-imm/pkg/validation"
)

// Config is the top-level configuration file.
type Config struct {
	Algorithm AlgorithmConfig `yaml:"algorithm"`
	Execution ExecutionConfig `yaml:"execution"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Graph     GraphConfig     `yaml:"graph"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// AlgorithmConfig holds the IMM parameters.
type AlgorithmConfig struct {
	K                int     `yaml:"k" validate:"gte=1"`
	Epsilon          float64 `yaml:"epsilon" validate:"gt=0"`
	L                float64 `yaml:"l" validate:"gt=0"`
	Model            string  `yaml:"model" validate:"oneof=ic lt"`
	Layout           string  `yaml:"layout" validate:"oneof=matrix mask"`
	BatchSize        int     `yaml:"batch_size"`
	NormalizeWeights bool    `yaml:"normalize_weights"`
}

// ExecutionConfig selects the execution strategy.
type ExecutionConfig struct {
	Strategy string `yaml:"strategy" validate:"required"`
	Workers  int    `yaml:"workers" validate:"gte=0"` // 0 means GOMAXPROCS
	Seed     uint64 `yaml:"seed"`
}

// ClusterConfig describes this process's place in a distributed run.
type ClusterConfig struct {
	Rank            int           `yaml:"rank" validate:"gte=0"`
	WorldSize       int           `yaml:"world_size" validate:"gte=1"`
	CoordinatorAddr string        `yaml:"coordinator_addr"`
	SurveyTimeout   time.Duration `yaml:"survey_timeout"`
	RecvTimeout     time.Duration `yaml:"recv_timeout"`
}

// GraphConfig sizes the synthetic input graph.
type GraphConfig struct {
	Nodes     int    `yaml:"nodes" validate:"gte=1"`
	AvgDegree int    `yaml:"avg_degree" validate:"gte=0"`
	Seed      uint64 `yaml:"seed"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr" validate:"omitempty,hostname_port"`
}

// TracingConfig selects the span exporter: "none" or "stdout".
type TracingConfig struct {
	Exporter string `yaml:"exporter" validate:"oneof=none stdout"`
}

// Default returns a single-process configuration.
func Default() *Config {
	sampleOpts := sampling.DefaultOptions()
	genOpts := graph.DefaultGenerateOptions()
	comm := cluster.DefaultCommConfig()

	return &Config{
		Algorithm: AlgorithmConfig{
			K:         sampleOpts.K,
			Epsilon:   sampleOpts.Epsilon,
			L:         sampleOpts.L,
			Model:     sampleOpts.Model.String(),
			Layout:    sampleOpts.Layout.String(),
			BatchSize: sampleOpts.BatchSize,
		},
		Execution: ExecutionConfig{
			Strategy: cluster.SharedMemory.String(),
		},
		Cluster: ClusterConfig{
			WorldSize:     comm.WorldSize,
			SurveyTimeout: comm.SurveyTimeout,
			RecvTimeout:   comm.RecvTimeout,
		},
		Graph: GraphConfig{
			Nodes:     genOpts.Nodes,
			AvgDegree: genOpts.AvgDegree,
			Seed:      genOpts.Seed,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{Exporter: tracing.ExporterNone},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags first, then the rules that span fields.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}

	strategy, strategyErr := cluster.ParseStrategy(c.Execution.Strategy)
	distributed := strategyErr == nil && strategy == cluster.Distributed

	return validation.NewConfigValidator("config").
		Custom("execution.strategy", func() error { return strategyErr }).
		RangeInt("algorithm.batch_size", c.Algorithm.BatchSize, 1, traversal.MaxBatch).
		Less("cluster.rank", c.Cluster.Rank, "cluster.world_size", c.Cluster.WorldSize).
		When(distributed, func(cv *validation.ConfigValidator) {
			cv.Required("cluster.coordinator_addr", c.Cluster.CoordinatorAddr).
				MinDuration("cluster.survey_timeout", c.Cluster.SurveyTimeout, time.Millisecond).
				MinDuration("cluster.recv_timeout", c.Cluster.RecvTimeout, time.Millisecond)
		}).
		When(strategyErr == nil && !distributed, func(cv *validation.ConfigValidator) {
			cv.RangeInt("cluster.world_size", c.Cluster.WorldSize, 1, 1)
		}).
		When(c.Algorithm.K > c.Graph.Nodes, func(cv *validation.ConfigValidator) {
			cv.Custom("algorithm.k", func() error {
				return fmt.Errorf("%w: k=%d, graph.nodes=%d", sampling.ErrSeedCount, c.Algorithm.K, c.Graph.Nodes)
			})
		}).
		Validate()
}

// Strategy returns the parsed execution strategy.
func (c *Config) Strategy() (cluster.Strategy, error) {
	return cluster.ParseStrategy(c.Execution.Strategy)
}

// Workers returns the local worker count: 1 for sequential runs, GOMAXPROCS
// when unset.
func (c *Config) Workers() int {
	if s, err := c.Strategy(); err == nil && s == cluster.Sequential {
		return 1
	}
	if c.Execution.Workers > 0 {
		return c.Execution.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// CommConfig returns the communicator configuration of this rank.
func (c *Config) CommConfig() cluster.CommConfig {
	return cluster.CommConfig{
		Rank:            c.Cluster.Rank,
		WorldSize:       c.Cluster.WorldSize,
		CoordinatorAddr: c.Cluster.CoordinatorAddr,
		SurveyTimeout:   c.Cluster.SurveyTimeout,
		RecvTimeout:     c.Cluster.RecvTimeout,
	}
}

// ExecutionContext builds the execution context. comm is required for the
// distributed strategy and ignored otherwise.
func (c *Config) ExecutionContext(comm cluster.Communicator) (cluster.ExecutionContext, error) {
	strategy, err := c.Strategy()
	if err != nil {
		return cluster.ExecutionContext{}, err
	}

	var ex cluster.ExecutionContext
	switch strategy {
	case cluster.Sequential:
		ex = cluster.SequentialContext()
	case cluster.SharedMemory:
		ex = cluster.SharedMemoryContext(c.Workers())
	case cluster.Distributed:
		if comm == nil {
			return cluster.ExecutionContext{}, cluster.ErrMissingCommunicator
		}
		ex = cluster.DistributedContext(comm, c.Workers())
	}
	return ex, ex.Validate()
}

// SamplingOptions converts the algorithm section.
func (c *Config) SamplingOptions(logger logging.Logger, reg *metrics.Registry) (sampling.Options, error) {
	model, err := diffusion.ParseModel(c.Algorithm.Model)
	if err != nil {
		return sampling.Options{}, err
	}
	layout, err := traversal.ParseLayout(c.Algorithm.Layout)
	if err != nil {
		return sampling.Options{}, err
	}
	opts := sampling.Options{
		K:         c.Algorithm.K,
		Epsilon:   c.Algorithm.Epsilon,
		L:         c.Algorithm.L,
		Model:     model,
		Layout:    layout,
		BatchSize: c.Algorithm.BatchSize,
		Logger:    logger,
		Metrics:   reg,
	}
	return opts, opts.Validate()
}

// GenerateOptions returns the synthetic graph parameters.
func (c *Config) GenerateOptions() graph.GenerateOptions {
	return graph.GenerateOptions{
		Nodes:     c.Graph.Nodes,
		AvgDegree: c.Graph.AvgDegree,
		Seed:      c.Graph.Seed,
	}
}

// TracerProvider builds the span exporter of the tracing section, writing to
// w. It is nil when tracing is off.
func (c *Config) TracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	return tracing.NewProvider(c.Tracing.Exporter, w, c.Cluster.Rank)
}

// Logger builds the process logger described by the logging section.
func (c *Config) Logger() logging.Logger {
	return logging.New(c.Logging.Format, logging.ParseLevel(c.Logging.Level))
}
