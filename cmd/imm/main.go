// Command imm selects influential seed vertices of a synthetic influence
// graph with IMM sampling, on one process or across a cluster of ranks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/dd0wney/cluso-imm/pkg/cluster"
	"github.com/dd0wney/cluso-imm/pkg/config"
	"github.com/dd0wney/cluso-imm/pkg/graph"
	"github.com/dd0wney/cluso-imm/pkg/health"
	"github.com/dd0wney/cluso-imm/pkg/logging"
	"github.com/dd0wney/cluso-imm/pkg/metrics"
	"github.com/dd0wney/cluso-imm/pkg/rng"
	"github.com/dd0wney/cluso-imm/pkg/sampling"
	"github.com/dd0wney/cluso-imm/pkg/transport"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "imm: %v\n", err)
		os.Exit(1)
	}
}

// run executes one IMM process. Exported spans are written to traceOut.
func run(args []string, traceOut io.Writer) error {
	fs := flag.NewFlagSet("imm", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	overrides := registerOverrides(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	overrides.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := cfg.Logger().With(logging.Rank(cfg.Cluster.Rank))
	reg := metrics.DefaultRegistry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := cfg.TracerProvider(traceOut)
	if err != nil {
		return err
	}
	if tp != nil {
		otel.SetTracerProvider(tp)
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn("trace flush failed", logging.Error(err))
			}
		}()
	}

	progress := &health.Progress{}
	if cfg.Metrics.ListenAddr != "" {
		checker := health.NewChecker()
		checker.Register(health.Liveness, "process", health.Alive())
		checker.Register(health.Readiness, "run", progress.Check)
		checker.Register(health.General, "run", progress.Check)

		srv := serve(ctx, cfg.Metrics.ListenAddr, reg, checker, logger)
		defer srv.Close()
	}

	g, err := graph.Generate(cfg.GenerateOptions())
	if err != nil {
		return fmt.Errorf("generate graph: %w", err)
	}
	if cfg.Algorithm.NormalizeWeights {
		g = g.NormalizeLinearThreshold()
	}
	logger.Info("graph ready",
		logging.Int("num_nodes", g.NumNodes()),
		logging.Int("num_edges", g.NumEdges()))

	strategy, err := cfg.Strategy()
	if err != nil {
		return err
	}
	var comm cluster.Communicator
	if strategy == cluster.Distributed {
		sc, err := cluster.NewSurveyCommunicator(transport.NewNNGSocketFactory(), cfg.CommConfig(),
			cluster.WithLogger(logger), cluster.WithMetrics(reg))
		if err != nil {
			return fmt.Errorf("start communicator: %w", err)
		}
		defer sc.Close()
		comm = sc
	}

	ex, err := cfg.ExecutionContext(comm)
	if err != nil {
		return err
	}
	opts, err := cfg.SamplingOptions(logger, reg)
	if err != nil {
		return err
	}
	if tp != nil {
		opts.TracerProvider = tp
	}

	progress.Set(health.PhaseSampling)
	rec, err := sampling.Run(ctx, g, rng.New(cfg.Execution.Seed), ex, opts)
	if err != nil {
		progress.Fail(err)
		return err
	}
	progress.Set(health.PhaseDone)
	if ex.Rank == 0 {
		fmt.Println(renderSummary(rec))
	}
	return nil
}

// serve exposes /metrics and the health endpoints until the server is
// closed.
func serve(ctx context.Context, addr string, reg *metrics.Registry, checker *health.Checker, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	checker.Mount(mux)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", logging.Error(err))
		}
	}()
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			reg.UpdateSystemMetrics()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	logger.Info("http endpoint listening", logging.String("addr", addr))
	return srv
}
