package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for researchflow
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "researchflow",
		Short: "Concurrent research workflow orchestrator",
		Long: `Researchflow answers a research query about a subject by planning a set
of specialist analyses, running them concurrently under per-task and
per-run deadlines, and synthesizing whatever completed into one result.

Runs move through planning, executing and synthesizing before they complete
or fail. Partial results are reported with the analyses that are missing.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewPlanCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewShowCommand())
	cmd.AddCommand(NewResumeCommand())
	cmd.AddCommand(NewServeCommand())

	return cmd
}
