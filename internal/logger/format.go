package logger

import (
	"fmt"
	"strings"

	"github.com/harrison/researchflow/internal/models"
)

// outcomeText renders one task outcome without timestamp or level.
// Format: "task <id> (<capability>): <status> in <duration>[: <reason>]"
func outcomeText(o models.TaskOutcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "task %s (%s): %s in %s", o.TaskID, o.Capability, o.Status, formatDuration(o.Duration))
	if o.Attempts > 1 {
		fmt.Fprintf(&sb, " after %d attempts", o.Attempts)
	}
	if !o.Succeeded() && o.Error != nil {
		fmt.Fprintf(&sb, ": [%s] %s", o.Error.Kind, o.Error.Message)
	}
	return sb.String()
}

// outcomeLevel picks the level a task outcome is reported at.
func outcomeLevel(o models.TaskOutcome) string {
	if o.Succeeded() {
		return "INFO"
	}
	return "WARN"
}

// runStatus condenses a terminal snapshot into one word.
func runStatus(s models.Snapshot) string {
	switch {
	case s.Phase == models.PhaseFailed:
		return "FAILED"
	case s.Result == nil:
		return strings.ToUpper(string(s.Phase))
	case s.Result.NoAnalysesRun:
		return "EMPTY"
	case s.Result.TotalFailure:
		return "FAILED"
	case s.Result.Degraded():
		return "PARTIAL"
	default:
		return "SUCCESS"
	}
}

// summaryLines renders the run summary block, one line per entry.
func summaryLines(s models.Snapshot) []string {
	done, total := s.Progress()
	lines := []string{
		"=== Run Summary ===",
		fmt.Sprintf("Run:        %s", s.RunID),
		fmt.Sprintf("Subject:    %s", s.Request.Subject),
		fmt.Sprintf("Phase:      %s", s.Phase),
		fmt.Sprintf("Tasks:      %d/%d recorded", done, total),
	}

	if r := s.Result; r != nil {
		lines = append(lines,
			fmt.Sprintf("Succeeded:  %d", r.Stats.Succeeded),
			fmt.Sprintf("Failed:     %d", r.Stats.Failed),
			fmt.Sprintf("Timed out:  %d", r.Stats.TimedOut),
			fmt.Sprintf("Findings:   %d", r.Stats.KeyFindings),
		)
		for _, it := range r.IncompleteTasks {
			lines = append(lines, fmt.Sprintf("  - %s (%s): %s", it.TaskID, it.Status, it.Reason))
		}
	}
	if s.Error != nil {
		lines = append(lines, fmt.Sprintf("Error:      %s failed: %s", s.Error.Stage, s.Error.Message))
	}
	if !s.CreatedAt.IsZero() && !s.UpdatedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Duration:   %s", formatDuration(s.UpdatedAt.Sub(s.CreatedAt))))
	}
	lines = append(lines, fmt.Sprintf("Status:     %s", runStatus(s)))
	return lines
}
