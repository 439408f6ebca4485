package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/researchflow/internal/config"
	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/planner"
)

// addRuntimeFlags registers the flags that override config for commands
// that build the full runtime.
func addRuntimeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "Path to config file (default: .researchflow/config.yaml)")
	f.Int("max-concurrency", 0, "Maximum concurrent tasks per run (0 = one worker per task)")
	f.Int("global-max-concurrency", 0, "Maximum concurrent tasks across all runs (0 = unlimited)")
	f.Duration("timeout", 0, "Deadline for planning and execution (e.g. 30s, 5m; 0 = none)")
	f.Duration("task-timeout", 0, "Deadline for a single task (0 = bounded by --timeout only)")
	f.String("log-level", "", "Log level: trace, debug, info, warn, error")
	f.String("log-dir", "", "Directory for log files")
	f.String("report-dir", "", "Directory reports are written to")
	f.StringSlice("report-format", nil, "Report formats: markdown, html, pdf, json, csv (repeatable)")
	f.Bool("no-report", false, "Do not render reports")
	f.String("analysis", "", "Analysis backend: template, cli, none")
	f.Uint64("seed", 0, "Seed for generated source data")
	f.String("store", "", "Path of the run history database")
	f.Bool("no-store", false, "Disable run history")
	f.Int("retry", 0, "Total attempts per failed task (1 = no retries)")
	f.String("notify-url", "", "Webhook URL that receives run events")
}

// loadConfig loads configuration and applies every changed runtime flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	base, err := config.BaseDir()
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		cfg.ResolvePaths(base)
	} else {
		cfg, err = config.Load(base)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	o, err := overridesFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	cfg.MergeWithFlags(o)
	cfg.ResolvePaths(base)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// overridesFromFlags collects only the flags the user actually set.
func overridesFromFlags(cmd *cobra.Command) (config.Overrides, error) {
	f := cmd.Flags()
	var o config.Overrides

	if f.Changed("max-concurrency") {
		v, _ := f.GetInt("max-concurrency")
		o.MaxConcurrency = &v
	}
	if f.Changed("global-max-concurrency") {
		v, _ := f.GetInt("global-max-concurrency")
		o.GlobalMaxConcurrency = &v
	}
	if f.Changed("timeout") {
		v, _ := f.GetDuration("timeout")
		o.WorkflowTimeout = &v
	}
	if f.Changed("task-timeout") {
		v, _ := f.GetDuration("task-timeout")
		o.TaskTimeout = &v
	}
	if f.Changed("log-level") {
		v, _ := f.GetString("log-level")
		v = strings.ToLower(v)
		o.LogLevel = &v
	}
	if f.Changed("log-dir") {
		v, _ := f.GetString("log-dir")
		o.LogDir = &v
	}
	if f.Changed("report-dir") {
		v, _ := f.GetString("report-dir")
		o.ReportDir = &v
	}
	if f.Changed("report-format") && f.Changed("no-report") {
		return o, fmt.Errorf("cannot use both --report-format and --no-report")
	}
	if f.Changed("report-format") {
		v, _ := f.GetStringSlice("report-format")
		o.ReportFormats = &v
	} else if noReport, _ := f.GetBool("no-report"); noReport {
		none := []string{}
		o.ReportFormats = &none
	}
	if f.Changed("analysis") {
		v, _ := f.GetString("analysis")
		o.AnalysisBackend = &v
	}
	if f.Changed("seed") {
		v, _ := f.GetUint64("seed")
		o.Seed = &v
	}
	if f.Changed("store") && f.Changed("no-store") {
		return o, fmt.Errorf("cannot use both --store and --no-store")
	}
	if f.Changed("store") {
		v, _ := f.GetString("store")
		o.StorePath = &v
	}
	if f.Changed("no-store") {
		v, _ := f.GetBool("no-store")
		o.NoStore = &v
	}
	if f.Changed("retry") {
		v, _ := f.GetInt("retry")
		o.RetryAttempts = &v
	}
	if f.Changed("notify-url") {
		v, _ := f.GetString("notify-url")
		o.NotifyURL = &v
	}
	return o, nil
}

// addRequestFlags registers the flags that build a WorkflowRequest.
func addRequestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringToString("context", nil, "Context hints as key=value (repeatable), e.g. --context indication=oncology")
	f.String("request", "", "Read the request from a YAML or JSON file")
	f.StringSlice("tasks", nil, "Only run these capabilities (e.g. market,patent)")
	f.StringSlice("exclude", nil, "Skip these capabilities")
}

// requestFromArgs builds the request from positional args and request flags.
// Positional args are "<subject> [query...]"; --request supplies defaults
// that args and flags override.
func requestFromArgs(cmd *cobra.Command, args []string) (models.WorkflowRequest, error) {
	var base models.WorkflowRequest
	if path, _ := cmd.Flags().GetString("request"); path != "" {
		r, err := loadRequestFile(path)
		if err != nil {
			return models.WorkflowRequest{}, err
		}
		base = r
	}

	subject, query := base.Subject, base.Query
	if len(args) > 0 {
		subject = args[0]
	}
	if len(args) > 1 {
		query = strings.Join(args[1:], " ")
	}

	ctx := make(map[string]string, len(base.Context))
	for k, v := range base.Context {
		ctx[k] = v
	}
	hints, _ := cmd.Flags().GetStringToString("context")
	for k, v := range hints {
		ctx[k] = v
	}
	if cmd.Flags().Changed("tasks") {
		tasks, _ := cmd.Flags().GetStringSlice("tasks")
		ctx[planner.HintTasks] = strings.Join(tasks, ",")
	}
	if cmd.Flags().Changed("exclude") {
		exclude, _ := cmd.Flags().GetStringSlice("exclude")
		ctx[planner.HintExclude] = strings.Join(exclude, ",")
	}

	req := models.NewWorkflowRequest(subject, query, ctx)
	if err := req.Validate(); err != nil {
		return models.WorkflowRequest{}, fmt.Errorf("invalid request: %w (pass a subject or --request)", err)
	}
	return req, nil
}
