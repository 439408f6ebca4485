package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/report"
)

var (
	headerColor = color.New(color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	failColor   = color.New(color.FgRed)
	labelColor  = color.New(color.FgCyan)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusColor(s models.TaskStatus) *color.Color {
	switch s {
	case models.StatusSuccess:
		return okColor
	case models.StatusTimedOut:
		return warnColor
	default:
		return failColor
	}
}

func phaseColor(p models.Phase) *color.Color {
	switch p {
	case models.PhaseCompleted:
		return okColor
	case models.PhaseFailed:
		return failColor
	default:
		return warnColor
	}
}

// printPlan lists planned tasks in plan order.
func printPlan(w io.Writer, req models.WorkflowRequest, plan []models.TaskSpec) {
	headerColor.Fprintf(w, "Plan for %s\n", req.Subject)
	if req.Query != "" {
		fmt.Fprintf(w, "  Query: %s\n", req.Query)
	}
	if len(plan) == 0 {
		warnColor.Fprintln(w, "  No analyses apply to this request.")
		return
	}
	fmt.Fprintf(w, "  Tasks: %d\n", len(plan))
	for i, spec := range plan {
		fmt.Fprintf(w, "  %d. %s (%s)", i+1, labelColor.Sprint(spec.ID), spec.Capability)
		if spec.Name != "" {
			fmt.Fprintf(w, ": %s", spec.Name)
		}
		if len(spec.OptionalContextKeys) > 0 {
			fmt.Fprintf(w, " [optional: %s]", strings.Join(spec.OptionalContextKeys, ", "))
		}
		fmt.Fprintln(w)
	}
}

// printResult prints the synthesized result of a finished run.
func printResult(w io.Writer, snap models.Snapshot, artifacts []report.Artifact) {
	fmt.Fprintln(w)
	headerColor.Fprintf(w, "Research result for %s", snap.Request.Subject)
	fmt.Fprintf(w, " (%s)\n", phaseColor(snap.Phase).Sprint(snap.Phase))
	fmt.Fprintf(w, "  Run: %s\n", snap.RunID)

	if snap.Error != nil {
		failColor.Fprintf(w, "  %s failed: %s\n", snap.Error.Stage, snap.Error.Message)
	}

	for _, o := range models.SortedOutcomes(snap.Outcomes) {
		line := fmt.Sprintf("%-16s %-10s %s", o.TaskID, o.Status, o.Duration.Round(time.Millisecond))
		if r := o.Reason(); r != "" {
			line += "  " + r
		}
		fmt.Fprintf(w, "  %s\n", statusColor(o.Status).Sprint(line))
	}

	if r := snap.Result; r != nil {
		switch {
		case r.NoAnalysesRun:
			warnColor.Fprintln(w, "  No analyses were run.")
		case r.TotalFailure:
			failColor.Fprintln(w, "  All analyses failed.")
		case r.Degraded():
			warnColor.Fprintf(w, "  Partial result: %d of %d analyses completed.\n", r.Stats.Succeeded, r.Stats.Planned)
		}
		if r.Summary != "" {
			fmt.Fprintln(w)
			headerColor.Fprintln(w, "Summary")
			fmt.Fprintln(w, indent(strings.TrimSpace(r.Summary), "  "))
		}
		if len(r.KeyFindings) > 0 {
			fmt.Fprintln(w)
			headerColor.Fprintln(w, "Key findings")
			for _, f := range r.KeyFindings {
				fmt.Fprintf(w, "  - %s\n", f)
			}
		}
		if len(r.Recommendations) > 0 {
			fmt.Fprintln(w)
			headerColor.Fprintln(w, "Recommendations")
			for _, rec := range r.Recommendations {
				fmt.Fprintf(w, "  - %s\n", rec)
			}
		}
	}

	if len(artifacts) > 0 {
		fmt.Fprintln(w)
		headerColor.Fprintln(w, "Reports")
		for _, a := range artifacts {
			fmt.Fprintf(w, "  %-8s %s\n", a.Format, a.Path)
		}
	}
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
