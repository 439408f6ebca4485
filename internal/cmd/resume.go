package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewResumeCommand creates the resume command
func NewResumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [run-id]",
		Short: "Resume an interrupted run from run history",
		Long: `Resume continues a recorded run that stopped before reaching a terminal
phase. Tasks that already have an outcome are not run again; an interrupted
synthesis is retried from the recorded outcomes.

Examples:
  researchflow resume 3f2a9c1e-...
  researchflow resume --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: resumeCommand,
	}

	addRuntimeFlags(cmd)
	cmd.Flags().Bool("all", false, "Resume every interrupted run")
	cmd.Flags().Bool("json", false, "Print the final run snapshots as JSON")

	return cmd
}

func resumeCommand(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		return errors.New("pass exactly one of <run-id> or --all")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cfg, logWriter(cmd, jsonOut))
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.history()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	ids := args
	if all {
		if ids, err = st.Resumable(ctx); err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No interrupted runs to resume.")
			return nil
		}
	}

	var errs []error
	for _, id := range ids {
		snap, err := st.Get(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := a.manager.Resume(ctx, snap, cfg.WorkflowTimeout); err != nil {
			errs = append(errs, fmt.Errorf("resume %s: %w", id, err))
			continue
		}
		final, runErr := a.manager.Wait(ctx, id)
		if ctx.Err() != nil {
			// Interrupted: stop the run and wait for its cancelled outcomes
			if err := a.manager.Cancel(id); err != nil {
				errs = append(errs, fmt.Errorf("cancel %s: %w", id, err))
				continue
			}
			final, runErr = a.manager.Wait(context.Background(), id)
		}
		if err := a.report(cmd, final, runErr, jsonOut); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
