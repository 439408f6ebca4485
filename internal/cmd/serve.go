package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/server"
)

// shutdownGrace bounds how long serve waits for in-flight runs on exit.
const shutdownGrace = 30 * time.Second

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow API over HTTP",
		Long: `Serve accepts research requests over HTTP and runs them in the background.

Endpoints:
  POST   /runs              start a run ({"subject": ..., "query": ..., "context": {...}})
  GET    /runs              list runs held in memory (?source=history for run history)
  GET    /runs/:id          run status and recorded task outcomes
  GET    /runs/:id/result   synthesized result (202 while running, 409 if failed)
  DELETE /runs/:id          cancel a run
  GET    /healthz           liveness

Completed runs are rendered to the configured report formats. On SIGINT or
SIGTERM the server stops accepting requests and cancels in-flight runs.

Examples:
  researchflow serve
  researchflow serve --addr 127.0.0.1:9000 --global-max-concurrency 8
  researchflow serve --report-format json --no-store`,
		Args: cobra.NoArgs,
		RunE: serveCommand,
	}

	addRuntimeFlags(cmd)
	cmd.Flags().String("addr", "", "Listen address (default from config, :8080)")

	return cmd
}

func serveCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		addr, _ := cmd.Flags().GetString("addr")
		cfg.Server.Addr = addr
	}

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []server.Option{
		server.WithDeadline(cfg.WorkflowTimeout),
		server.WithLogger(a.log),
		server.WithCompletionHook(func(ctx context.Context, snap models.Snapshot) {
			a.finish(ctx, snap)
		}),
	}
	if a.store != nil {
		opts = append(opts, server.WithHistory(a.store))
	}
	srv := server.New(a.manager, opts...)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	serveErr := srv.ListenAndServe(ctx, cfg.Server.Addr)

	a.log.LogInfo("shutting down: cancelling in-flight runs")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := a.manager.Shutdown(shutdownCtx); err != nil {
		a.log.LogWarn(fmt.Sprintf("runs still active after %s: %v", shutdownGrace, err))
	}
	srv.WaitHooks()

	return serveErr
}
