package cmd

import (
	"github.com/spf13/cobra"

	"github.com/harrison/researchflow/internal/planner"
	"github.com/harrison/researchflow/internal/registry"
)

// NewPlanCommand creates the plan command
func NewPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <subject> [query...]",
		Short: "Show which analyses a request would run",
		Long: `Plan selects the analyses for a request exactly as run would, without
executing them.

Examples:
  researchflow plan metformin "patent landscape only"
  researchflow plan metformin --exclude web --json`,
		RunE: planCommand,
	}

	addRequestFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the plan as JSON")

	return cmd
}

func planCommand(cmd *cobra.Command, args []string) error {
	req, err := requestFromArgs(cmd, args)
	if err != nil {
		return err
	}

	plan, err := planner.New(registry.Default()).Plan(req)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return writeJSON(cmd.OutOrStdout(), plan)
	}
	printPlan(cmd.OutOrStdout(), req, plan)
	return nil
}
