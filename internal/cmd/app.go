package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/harrison/researchflow/internal/analysis"
	"github.com/harrison/researchflow/internal/analysts"
	"github.com/harrison/researchflow/internal/config"
	"github.com/harrison/researchflow/internal/datasource"
	"github.com/harrison/researchflow/internal/executor"
	"github.com/harrison/researchflow/internal/logger"
	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/notify"
	"github.com/harrison/researchflow/internal/planner"
	"github.com/harrison/researchflow/internal/registry"
	"github.com/harrison/researchflow/internal/report"
	"github.com/harrison/researchflow/internal/store"
	"github.com/harrison/researchflow/internal/synthesis"
	"github.com/harrison/researchflow/internal/workflow"
)

// app is the fully wired runtime built from a Config.
type app struct {
	cfg      *config.Config
	registry *registry.Registry
	planner  *planner.Planner
	engine   *workflow.Engine
	manager  *workflow.Manager
	renderer *report.Renderer
	store    *store.Store // nil when history is disabled
	log      logger.RunLogger
	fileLog  *logger.FileLogger
	notifier *notify.Announcer // nil without a webhook
}

// newApp wires datasource, analysts, executor, coordinator, synthesizer,
// workflow engine, logging, history and reports from cfg. Console output goes
// to out.
func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, registry: registry.Default()}
	a.planner = planner.New(a.registry)

	service, err := analysis.New(analysis.Options{
		Backend: cfg.Analysis.Backend,
		CLIPath: cfg.Analysis.CLIPath,
		Timeout: cfg.Analysis.Timeout,
	})
	if err != nil {
		return nil, err
	}

	fail, err := cfg.FailCapabilities()
	if err != nil {
		return nil, err
	}
	provider := datasource.NewMockProvider(datasource.MockConfig{
		Seed:    cfg.DataSource.Seed,
		Latency: cfg.DataSource.Latency,
		Fail:    fail,
	})

	bindings, err := analysts.Bindings(a.registry, provider, service)
	if err != nil {
		return nil, fmt.Errorf("bind analysts: %w", err)
	}
	coordinator := executor.NewCoordinator(
		executor.NewTaskExecutor(bindings, cfg.TaskTimeout),
		executor.CoordinatorConfig{
			MaxConcurrency: cfg.MaxConcurrency,
			Limiter:        executor.NewLimiter(cfg.GlobalMaxConcurrency),
			Retry: executor.RetryPolicy{
				MaxAttempts: cfg.Retry.MaxAttempts,
				Backoff:     cfg.Retry.Backoff,
			},
		},
	)

	if a.renderer, err = report.New(cfg.Report.Formats); err != nil {
		return nil, err
	}

	console := logger.NewConsoleLogger(out, cfg.LogLevel)
	if cfg.LogDir != "" {
		fl, err := logger.NewFileLoggerWithLevel(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			console.LogWarn(fmt.Sprintf("file logging disabled: %v", err))
		} else {
			a.fileLog = fl
		}
	}
	if client := notify.NewClient(cfg.Notify); client.Enabled() {
		a.notifier = notify.NewAnnouncer(client, console)
	}
	loggers := []logger.RunLogger{console}
	if a.fileLog != nil {
		loggers = append(loggers, a.fileLog)
	}
	if a.notifier != nil {
		loggers = append(loggers, a.notifier)
	}
	a.log = logger.Multi(loggers...)

	opts := []workflow.Option{workflow.WithLogger(a.log)}
	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open run history: %w", err)
		}
		a.store = st
		opts = append(opts, workflow.WithCheckpointer(st))
	}

	a.engine = workflow.NewEngine(a.planner, coordinator, synthesis.New(service), opts...)
	a.manager = workflow.NewManager(a.engine, cfg.Server.Retention)
	return a, nil
}

// history returns the run store or an error when history is disabled.
func (a *app) history() (*store.Store, error) {
	if a.store == nil {
		return nil, errors.New("run history is disabled (store.enabled: false)")
	}
	return a.store, nil
}

// finish renders reports for a completed run. Failed runs have no report.
func (a *app) finish(ctx context.Context, snap models.Snapshot) ([]report.Artifact, error) {
	if snap.Phase != models.PhaseCompleted || len(a.renderer.Formats()) == 0 {
		return nil, nil
	}
	artifacts, err := a.renderer.Render(ctx, snap, a.cfg.Report.Dir)
	if err != nil {
		a.log.LogWarn(fmt.Sprintf("report rendering failed: %v", err))
		return nil, err
	}
	for _, art := range artifacts {
		a.log.LogInfo(fmt.Sprintf("[%s] wrote %s report: %s", snap.RunID, art.Format, art.Path))
	}
	return artifacts, nil
}

// Close flushes pending notifications and releases the store and file
// logger.
func (a *app) Close() error {
	if a.notifier != nil {
		a.notifier.Close()
	}
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.fileLog != nil {
		errs = append(errs, a.fileLog.Close())
	}
	return errors.Join(errs...)
}
