// File: cmd/primbench/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// primbench drives every hioload-mem primitive from concurrent workers,
// checks its invariants and prints a throughput table.

package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/time/rate"

	"github.com/momentics/hioload-mem/affinity"
	"github.com/momentics/hioload-mem/control"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Value: 8,
		Usage: "Number of concurrent workers",
	}
	opsFlag = &cli.IntFlag{
		Name:  "ops",
		Value: 100000,
		Usage: "Operations per worker",
	}
	rateFlag = &cli.Float64Flag{
		Name:  "rate",
		Usage: "Per-worker operation rate limit in ops/sec (0 = unlimited)",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Value: 0,
		Usage: "Log verbosity (0 = info, 1 = debug, 2 = trace)",
	}
	pinFlag = &cli.BoolFlag{
		Name:  "pin",
		Usage: "Pin each worker to its own CPU",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "Serve Prometheus metrics on this address while running",
	}
	watchFlag = &cli.BoolFlag{
		Name:  "watch",
		Usage: "Reload --config when it changes; each benchmark starts with the latest version",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := &cli.App{
		Name:  "primbench",
		Usage: "exercise hioload-mem primitives under concurrency",
		Flags: []cli.Flag{configFlag, workersFlag, opsFlag, rateFlag, verbosityFlag, pinFlag, metricsAddrFlag, watchFlag},
		Commands: []*cli.Command{
			benchCommand("arena", "Concurrent arena reservation with growth"),
			benchCommand("pool", "Array pool rent/return churn"),
			benchCommand("ring", "Overwriting ring buffer producers and consumers"),
			benchCommand("heap", "Min-heap sort order"),
			benchCommand("staging", "Frame staging with concurrent producers"),
			{
				Name:   "all",
				Usage:  "Run every benchmark",
				Action: func(c *cli.Context) error { return runBench(c, benchOrder...) },
			},
			{
				Name:  "config",
				Usage: "Print the effective configuration as TOML",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return cfg.Encode(c.App.Writer)
				},
			},
		},
	}
	return app
}

func benchCommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:   name,
		Usage:  usage,
		Action: func(c *cli.Context) error { return runBench(c, name) },
	}
}

func loadConfig(c *cli.Context) (control.Config, error) {
	if path := c.String(configFlag.Name); path != "" {
		return control.LoadConfig(path)
	}
	return control.DefaultConfig(), nil
}

func newLogger(verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(stdlog.New(os.Stderr, "", stdlog.LstdFlags))
}

func runBench(c *cli.Context, names ...string) error {
	log := newLogger(c.Int(verbosityFlag.Name))

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.V(1).Info(fmt.Sprintf(format, args...))
	}))
	defer undo()
	if err != nil {
		log.Error(err, "failed to set GOMAXPROCS")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctrl, err := control.NewController(cfg)
	if err != nil {
		return err
	}
	log.V(1).Info("platform", "probes", ctrl.Debug.DumpState())

	if c.Bool(watchFlag.Name) {
		path := c.String(configFlag.Name)
		if path == "" {
			return errors.New("--watch requires --config")
		}
		ctrl.OnReload(func() {
			log.Info("configuration changed, applies from the next benchmark")
		})
		stop := watchConfig(c.Context, ctrl.Config, path, log)
		defer stop()
	}

	env := &benchEnv{
		cfg:     cfg,
		store:   ctrl.Config,
		workers: c.Int(workersFlag.Name),
		ops:     c.Int(opsFlag.Name),
		limit:   rate.Inf,
		log:     log,
		metrics: ctrl.Metrics,
	}
	if r := c.Float64(rateFlag.Name); r > 0 {
		env.limit = rate.Limit(r)
	}
	if env.workers < 1 || env.ops < 1 {
		return fmt.Errorf("workers and ops must be positive, got %d and %d", env.workers, env.ops)
	}

	if c.Bool(pinFlag.Name) {
		cpus, err := affinity.AllowedCPUs()
		if err != nil {
			log.Error(err, "pinning disabled")
		}
		env.pinCPUs = cpus
	}

	if addr := c.String(metricsAddrFlag.Name); addr != "" {
		stop := serveMetrics(addr, ctrl.Metrics, log)
		defer stop()
	}

	results, err := runAll(c.Context, env, names...)
	renderResults(c.App.Writer, results)
	return err
}

// watchConfig reloads path into cs in the background until the returned
// stop is called.
func watchConfig(ctx context.Context, cs *control.ConfigStore, path string, log logr.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := control.WatchFile(ctx, cs, path, log); err != nil {
			log.Error(err, "config watch stopped", "path", path)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// serveMetrics exposes reg over HTTP until the returned stop is called.
func serveMetrics(addr string, reg *control.MetricsRegistry, log logr.Logger) (stop func()) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(control.NewPrometheusCollector(reg, "hioload_mem"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "metrics server failed", "addr", addr)
		}
	}()
	log.Info("serving metrics", "addr", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
