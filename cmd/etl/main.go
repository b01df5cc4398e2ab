// Command etl loads a product catalog CSV into a relational schema.
//
// Usage:
//
//	etl -config configs/catalog.yaml [-csv path|s3://bucket/key] [-drop] [-validate] [-v]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"catalogetl/internal/config"
	"catalogetl/internal/logging"
	"catalogetl/internal/metrics"
	"catalogetl/internal/metrics/datadog"
	"catalogetl/internal/multitable"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "catalogetl/internal/storage/all"
)

// runner is the part of *multitable.Runner the CLI needs.
type runner interface {
	Run(ctx context.Context, cfg config.Config) (multitable.Report, error)
}

// appDeps are the side-effecting seams of runMain. Tests replace them.
type appDeps struct {
	loadConfig  func(path string) (*config.Config, error)
	newLogger   func(level, format string) (*zap.Logger, error)
	initMetrics func(ctx context.Context, cfg config.MetricsConfig, job string, logger *zap.Logger) (metrics.Backend, func(), error)
	newRunner   func(logger *zap.Logger, m metrics.Backend) runner
}

func defaultDeps() appDeps {
	return appDeps{
		loadConfig:  config.Load,
		newLogger:   logging.New,
		initMetrics: initMetrics,
		newRunner: func(logger *zap.Logger, m metrics.Backend) runner {
			return multitable.NewDefaultRunner(logger, m)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

// runMain is main without the process exit. Exit codes: 0 success,
// 1 configuration or load failure, 2 usage error.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath        string
		csvPath        string
		metricsBackend string
		drop           bool
		validate       bool
		verbose        bool
	)
	fs.StringVar(&cfgPath, "config", "configs/catalog.yaml", "loader config YAML path (empty: environment only)")
	fs.StringVar(&csvPath, "csv", "", "CSV path or s3://bucket/key (overrides source.path)")
	fs.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend: none|datadog (overrides metrics.backend)")
	fs.BoolVar(&drop, "drop", false, "drop existing tables before creating them")
	fs.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "usage: etl -config <path> [-csv <path>] [-drop] [-validate] [-v]\nunexpected argument %q\n", fs.Arg(0))
		return 2
	}

	cfg, err := deps.loadConfig(strings.TrimSpace(cfgPath))
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	if csvPath != "" {
		cfg.Source.Path = csvPath
	}
	if drop {
		cfg.Schema.Drop = true
	}
	if metricsBackend != "" {
		cfg.Metrics.Backend = metricsBackend
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	issues := config.Validate(*cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "configuration is invalid: %s\n", cfgPath)
		return 1
	}
	if validate {
		fmt.Fprintf(stdout, "configuration is valid: %s\n", cfgPath)
		return 0
	}

	logger, err := deps.newLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(stderr, "init logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	m, cleanup, err := deps.initMetrics(ctx, cfg.Metrics, cfg.Job, logger)
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	rep, err := deps.newRunner(logger, m).Run(ctx, *cfg)
	if err != nil {
		logger.Error("load failed", append(rep.Fields(), zap.Error(err))...)
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "loaded %d products (%d statements) in %s\n", rep.Products, rep.Executed, rep.Duration)
	return 0
}

// newDatadogBackend is a seam for tests.
var newDatadogBackend = func(ctx context.Context, opts datadog.Options) (datadogBackend, error) {
	return datadog.NewBackend(ctx, opts)
}

// datadogBackend is a metrics backend that owns a flush loop.
type datadogBackend interface {
	metrics.Backend
	Close() error
}

// initMetrics selects the metrics backend. The returned cleanup is never nil
// and must be called once; for Datadog it stops the flush loop and submits
// what is still buffered.
func initMetrics(ctx context.Context, cfg config.MetricsConfig, job string, logger *zap.Logger) (metrics.Backend, func(), error) {
	nop := func() {}
	switch cfg.Backend {
	case "", "none":
		logger.Debug("metrics disabled")
		return metrics.Nop{}, nop, nil

	case "datadog":
		tags := datadog.ParseTagsCSV(cfg.Tags)
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    job,
			Tags:       tags,
			FlushEvery: cfg.FlushEvery,
		})
		if err != nil {
			return metrics.Nop{}, nop, fmt.Errorf("datadog: %w", err)
		}
		logger.Info("metrics enabled",
			zap.String("backend", "datadog"),
			zap.String("job", job),
			zap.Strings("tags", tags),
		)
		return b, func() {
			if err := b.Close(); err != nil {
				logger.Warn("metrics: datadog close error", zap.Error(err))
			}
		}, nil

	default:
		return metrics.Nop{}, nop, fmt.Errorf("unknown metrics backend %q (want none|datadog)", cfg.Backend)
	}
}
