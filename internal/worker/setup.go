// Package worker wires a batch run together from configuration. It is the
// only place that knows how every collaborator is constructed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/examsolve/internal/dataset"
	"github.com/ahrav/examsolve/internal/llm"
	"github.com/ahrav/examsolve/internal/llm/configuration"
	"github.com/ahrav/examsolve/internal/llm/retry"
	"github.com/ahrav/examsolve/internal/metrics"
	"github.com/ahrav/examsolve/internal/report"
	"github.com/ahrav/examsolve/internal/store"
	"github.com/ahrav/examsolve/internal/workflow"
	"github.com/ahrav/examsolve/pkg/events"
)

const eventSource = "examsolve"

// Option customizes Build.
type Option func(*options)

type options struct {
	out    io.Writer
	clock  workflow.Clock
	solver llm.Solver
	logger *slog.Logger
}

// WithOutput directs console output to w instead of stdout.
func WithOutput(w io.Writer) Option { return func(o *options) { o.out = w } }

// WithClock replaces the wall clock used for pacing and retry waits.
func WithClock(c workflow.Clock) Option { return func(o *options) { o.clock = c } }

// WithSolver bypasses construction of the configured model client.
func WithSolver(s llm.Solver) Option { return func(o *options) { o.solver = s } }

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// App is a fully wired batch run.
type App struct {
	runner   *workflow.Runner
	registry *prometheus.Registry
	server   *metrics.Server
	sink     *events.FileSink
	runID    string
	logger   *slog.Logger
}

// Build validates cfg and constructs every collaborator of a run. The
// metrics listener, when configured, is bound here so a bad address fails
// before the first model call.
func Build(ctx context.Context, cfg *configuration.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", configuration.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = workflow.RealClock()
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	kind, err := llm.ParseKind(cfg.Type)
	if err != nil {
		return nil, err
	}

	solver := o.solver
	if solver == nil {
		if solver, err = llm.New(ctx, cfg, logger); err != nil {
			return nil, fmt.Errorf("build solver: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.MustNewMetrics(registry)

	retrier, err := retry.New(retry.PolicyFromConfig(cfg.Retry), o.clock,
		retry.WithLogger(logger),
		retry.WithObserver(func(a retry.Attempt) {
			m.ObserveAttempt(string(a.Err.Type))
			if a.Wait > 0 {
				m.ObserveRetryWait(string(a.Err.Type), a.Wait)
			}
		}))
	if err != nil {
		return nil, fmt.Errorf("build retrier: %w", err)
	}

	pacer, err := workflow.NewPacer(cfg.Pacing, o.clock, logger)
	if err != nil {
		return nil, fmt.Errorf("build pacer: %w", err)
	}

	app := &App{
		registry: registry,
		runID:    uuid.NewString(),
		logger:   logger.With("component", "worker"),
	}

	var sink events.EventSink
	if path := cfg.Observability.EventsPath; path != "" {
		fs, err := events.NewFileSink(path)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		app.sink = fs
		sink = fs
	}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv, err := metrics.Listen(addr, registry, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.server = srv
	}

	colored := !cfg.Features.DisableColor && !color.NoColor
	runner, err := workflow.NewRunner(cfg.Output, workflow.Deps{
		Source:   dataset.NewFile(cfg.Input),
		Store:    store.New(logger),
		Solver:   solver,
		Retrier:  retrier,
		Pacer:    pacer,
		Reporter: report.NewConsole(o.out, colored),
		Clock:    o.clock,
		Metrics:  m,
		Events:   events.NewEmitter(sink, eventSource, app.runID, logger),
		Logger:   logger,
		Info: workflow.RunInfo{
			Input: cfg.Input,
			Kind:  kind.String(),
			Model: cfg.Provider.Model,
		},
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.runner = runner

	return app, nil
}

// RunID identifies this run in logs and events.
func (a *App) RunID() string { return a.runID }

// Registry returns the registry backing the metrics endpoint.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (a *App) MetricsAddr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

// Run executes the batch. The metrics server, when enabled, lives exactly
// as long as the runner.
func (a *App) Run(ctx context.Context) (workflow.Result, error) {
	if a.server == nil {
		return a.runner.Run(ctx)
	}

	var res workflow.Result
	g, gctx := errgroup.WithContext(ctx)
	srvCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		defer stop()
		var err error
		res, err = a.runner.Run(gctx)
		return err
	})
	g.Go(func() error {
		return a.server.Serve(srvCtx)
	})

	err := g.Wait()
	return res, err
}

// Close releases the event log and, if Run was never called, the metrics
// listener.
func (a *App) Close() error {
	var errs []error
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event log: %w", err))
		}
	}
	if a.server != nil {
		if err := a.server.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
