package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrison/researchflow/internal/models"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <subject> [query...]",
		Short: "Run a research workflow for a subject",
		Long: `Run plans the analyses that apply to the subject, executes them
concurrently, and synthesizes their outputs into one result.

Individual analyses may fail or time out without failing the run: the result
lists which analyses are missing and why. Completed runs are rendered to the
configured report formats and recorded in run history.

Configuration is loaded from .researchflow/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  researchflow run metformin "repurposing opportunities in oncology"
  researchflow run metformin --tasks market,patent --context region=EU
  researchflow run --request request.yaml --report-format html,pdf
  researchflow run aspirin --timeout 30s --task-timeout 10s --retry 3
  researchflow run metformin --json > run.json`,
		RunE: runCommand,
	}

	addRuntimeFlags(cmd)
	addRequestFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the final run snapshot as JSON")

	return cmd
}

// signalContext cancels on SIGINT/SIGTERM so in-flight tasks stop promptly.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// logWriter keeps stdout clean for --json output.
func logWriter(cmd *cobra.Command, jsonOut bool) io.Writer {
	if jsonOut {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req, err := requestFromArgs(cmd, args)
	if err != nil {
		return err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cfg, logWriter(cmd, jsonOut))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	snap, runErr := a.manager.Run(ctx, req, cfg.WorkflowTimeout)
	return a.report(cmd, snap, runErr, jsonOut)
}

// report renders artifacts and prints the outcome of a finished run.
func (a *app) report(cmd *cobra.Command, snap models.Snapshot, runErr error, jsonOut bool) error {
	artifacts, _ := a.finish(context.WithoutCancel(cmd.Context()), snap)

	if jsonOut {
		if err := writeJSON(cmd.OutOrStdout(), snap); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), snap, artifacts)
	}

	if runErr != nil {
		return fmt.Errorf("run %s: %w", snap.RunID, runErr)
	}
	return nil
}
