package main

import (
	"flag"

	"github.com/dd0wney/cluso-imm/pkg/config"
)

// overrides holds the command-line values that replace configuration file
// settings. Only flags that were set explicitly are applied.
type overrides struct {
	k, workers, nodes, degree, batch int
	rank, world                      int
	epsilon, l                       float64
	seed                             uint64
	model, layout, strategy          string
	coordinator, metricsAddr         string
	logLevel, logFormat, trace       string
	normalize                        bool
}

func registerOverrides(fs *flag.FlagSet) *overrides {
	o := &overrides{}
	fs.IntVar(&o.k, "k", 0, "Seed set size")
	fs.Float64Var(&o.epsilon, "epsilon", 0, "Approximation parameter")
	fs.Float64Var(&o.l, "l", 0, "Confidence parameter")
	fs.StringVar(&o.model, "model", "", "Diffusion model (ic or lt)")
	fs.StringVar(&o.layout, "layout", "", "Traversal layout (matrix or mask)")
	fs.IntVar(&o.batch, "batch", 0, "Roots per traversal batch (1-64)")
	fs.BoolVar(&o.normalize, "normalize", false, "Scale incoming weights to sum to at most 1")
	fs.StringVar(&o.strategy, "strategy", "", "Execution strategy (sequential, shared, distributed)")
	fs.IntVar(&o.workers, "workers", 0, "Worker goroutines per rank")
	fs.Uint64Var(&o.seed, "seed", 0, "Base random seed")
	fs.IntVar(&o.nodes, "nodes", 0, "Vertices of the synthetic graph")
	fs.IntVar(&o.degree, "degree", 0, "Average in-degree of the synthetic graph")
	fs.IntVar(&o.rank, "rank", 0, "Rank of this process")
	fs.IntVar(&o.world, "world", 0, "Number of ranks")
	fs.StringVar(&o.coordinator, "coordinator", "", "Address rank 0 listens on, e.g. tcp://10.0.0.1:40899")
	fs.StringVar(&o.metricsAddr, "metrics", "", "Prometheus listen address, e.g. :9090")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&o.logFormat, "log-format", "", "Log format (json or console)")
	fs.StringVar(&o.trace, "trace", "", "Span exporter (none or stdout)")
	return o
}

func (o *overrides) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "k":
			cfg.Algorithm.K = o.k
		case "epsilon":
			cfg.Algorithm.Epsilon = o.epsilon
		case "l":
			cfg.Algorithm.L = o.l
		case "model":
			cfg.Algorithm.Model = o.model
		case "layout":
			cfg.Algorithm.Layout = o.layout
		case "batch":
			cfg.Algorithm.BatchSize = o.batch
		case "normalize":
			cfg.Algorithm.NormalizeWeights = o.normalize
		case "strategy":
			cfg.Execution.Strategy = o.strategy
		case "workers":
			cfg.Execution.Workers = o.workers
		case "seed":
			cfg.Execution.Seed = o.seed
		case "nodes":
			cfg.Graph.Nodes = o.nodes
		case "degree":
			cfg.Graph.AvgDegree = o.degree
		case "rank":
			cfg.Cluster.Rank = o.rank
		case "world":
			cfg.Cluster.WorldSize = o.world
		case "coordinator":
			cfg.Cluster.CoordinatorAddr = o.coordinator
		case "metrics":
			cfg.Metrics.ListenAddr = o.metricsAddr
		case "log-level":
			cfg.Logging.Level = o.logLevel
		case "log-format":
			cfg.Logging.Format = o.logFormat
		case "trace":
			cfg.Tracing.Exporter = o.trace
		}
	})
}
