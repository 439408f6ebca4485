package report

import (
	"fmt"
	"strings"

	"github.com/harrison/researchflow/internal/models"
)

func renderMarkdown(s models.Snapshot) ([]byte, error) {
	return []byte(buildMarkdown(s)), nil
}

// buildMarkdown lays out the run as a markdown document. HTML and PDF
// reports are derived from the same sections.
func buildMarkdown(s models.Snapshot) string {
	r := s.Result
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Research Report: %s\n\n", s.Request.Subject)
	if s.Request.Query != "" {
		fmt.Fprintf(&sb, "> %s\n\n", s.Request.Query)
	}
	fmt.Fprintf(&sb, "- Run: `%s`\n", s.RunID)
	fmt.Fprintf(&sb, "- Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "- Analyses: %d planned, %d succeeded, %d failed, %d timed out\n\n",
		r.Stats.Planned, r.Stats.Succeeded, r.Stats.Failed, r.Stats.TimedOut)

	switch {
	case r.NoAnalysesRun:
		sb.WriteString("**No analyses were run for this request.**\n\n")
	case r.TotalFailure:
		sb.WriteString("**All analyses failed.** The findings below are incomplete.\n\n")
	case r.Degraded():
		sb.WriteString("**Partial result:** some analyses did not complete.\n\n")
	}

	if r.Summary != "" {
		sb.WriteString("## Executive Summary\n\n")
		sb.WriteString(strings.TrimSpace(r.Summary))
		sb.WriteString("\n\n")
	}
	if r.Narrative != "" {
		sb.WriteString("## Strategic Synthesis\n\n")
		sb.WriteString(strings.TrimSpace(r.Narrative))
		sb.WriteString("\n\n")
	}

	writeList(&sb, "Key Findings", r.KeyFindings)
	writeList(&sb, "Recommendations", r.Recommendations)

	sb.WriteString("## Analyses\n\n")
	sb.WriteString("| Task | Capability | Status | Duration | Detail |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, o := range models.SortedOutcomes(s.Outcomes) {
		detail := o.Reason()
		if o.Payload != nil {
			detail = o.Payload.Analyst
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %.1fs | %s |\n",
			o.TaskID, o.Capability, o.Status, o.Duration.Seconds(), escapeCell(detail))
	}
	sb.WriteString("\n")

	for _, o := range models.SortedOutcomes(s.Outcomes) {
		if o.Payload == nil || strings.TrimSpace(o.Payload.Analysis) == "" {
			continue
		}
		fmt.Fprintf(&sb, "### %s\n\n", o.Payload.Analyst)
		if o.Payload.Source != "" {
			fmt.Fprintf(&sb, "_Source: %s_\n\n", o.Payload.Source)
		}
		sb.WriteString(strings.TrimSpace(o.Payload.Analysis))
		sb.WriteString("\n\n")
	}

	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
	sb.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
