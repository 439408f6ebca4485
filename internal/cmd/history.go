package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/researchflow/internal/config"
	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/store"
)

// openHistory opens the run store named by cfg. A missing database means no
// runs have been recorded yet and is reported as (nil, nil).
func openHistory(cfg *config.Config) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, errors.New("run history is disabled (store.enabled: false)")
	}
	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		return nil, nil
	}
	return store.Open(cfg.Store.Path)
}

// addHistoryFlags registers the subset of runtime flags history commands use.
func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .researchflow/config.yaml)")
	cmd.Flags().String("store", "", "Path of the run history database")
}

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded workflow runs",
		Long: `History lists runs recorded in the run history database, most recent
first, optionally with per-capability success statistics.

Examples:
  researchflow history
  researchflow history --subject metformin --phase completed --limit 5
  researchflow history --stats
  researchflow history --prune 720h`,
		Args: cobra.NoArgs,
		RunE: historyCommand,
	}

	addHistoryFlags(cmd)
	cmd.Flags().String("subject", "", "Only runs for this subject (case-insensitive)")
	cmd.Flags().String("phase", "", "Only runs in this phase")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().Bool("stats", false, "Show per-capability outcome statistics")
	cmd.Flags().Duration("prune", 0, "Delete finished runs older than this before listing")
	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openHistory(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if st == nil {
		fmt.Fprintf(out, "No runs recorded yet.\nDatabase path: %s\n", cfg.Store.Path)
		return nil
	}
	defer st.Close()

	ctx := cmd.Context()
	jsonOut, _ := cmd.Flags().GetBool("json")

	if age, _ := cmd.Flags().GetDuration("prune"); age > 0 {
		n, err := st.Prune(ctx, time.Now().Add(-age))
		if err != nil {
			return err
		}
		if !jsonOut {
			fmt.Fprintf(out, "Pruned %d run(s) older than %s\n", n, age)
		}
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		rows, err := st.CapabilityStats(ctx)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(out, rows)
		}
		printCapabilityStats(cmd, rows)
		return nil
	}

	subject, _ := cmd.Flags().GetString("subject")
	phase, _ := cmd.Flags().GetString("phase")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := st.List(ctx, store.ListOptions{Subject: subject, Phase: models.Phase(phase), Limit: limit})
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No matching runs.")
		return nil
	}

	headerColor.Fprintf(out, "%-36s  %-12s  %-7s  %-19s  %s\n", "RUN", "PHASE", "TASKS", "UPDATED", "SUBJECT")
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %s  %3d/%-3d  %-19s  %s\n",
			r.RunID,
			phaseColor(r.Phase).Sprintf("%-12s", r.Phase),
			r.Recorded, r.Planned,
			r.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Subject)
	}
	return nil
}

func printCapabilityStats(cmd *cobra.Command, rows []store.CapabilityStat) {
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No task outcomes recorded yet.")
		return
	}
	headerColor.Fprintf(out, "%-16s  %5s  %7s  %6s  %8s  %8s  %s\n", "CAPABILITY", "TOTAL", "SUCCESS", "FAILED", "TIMEOUT", "AVG", "RATE")
	for _, r := range rows {
		rate := r.SuccessRate() * 100
		c := okColor
		switch {
		case rate < 50:
			c = failColor
		case rate < 90:
			c = warnColor
		}
		avg := time.Duration(r.AvgDurationMs * float64(time.Millisecond)).Round(time.Millisecond)
		fmt.Fprintf(out, "%-16s  %5d  %7d  %6d  %8d  %8s  %s\n",
			r.Capability, r.Total, r.Succeeded, r.Failed, r.TimedOut, avg, c.Sprintf("%.0f%%", rate))
	}
}
