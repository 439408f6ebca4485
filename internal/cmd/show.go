package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run",
		Long: `Show prints the latest recorded state of a run: its phase, every task
outcome and, for completed runs, the synthesized result.`,
		Args: cobra.ExactArgs(1),
		RunE: showCommand,
	}

	addHistoryFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the full snapshot as JSON")
	cmd.Flags().Bool("log", false, "Also print the run's phase log")

	return cmd
}

func showCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("no runs recorded yet (database %s does not exist)", cfg.Store.Path)
	}
	defer st.Close()

	snap, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return writeJSON(out, snap)
	}

	printResult(out, snap, nil)
	if withLog, _ := cmd.Flags().GetBool("log"); withLog {
		fmt.Fprintln(out)
		headerColor.Fprintln(out, "Log")
		for _, e := range snap.Log {
			fmt.Fprintf(out, "  [%s] %-12s %s\n", e.Time.Local().Format("15:04:05"), e.Phase, e.Message)
		}
	}
	return nil
}
