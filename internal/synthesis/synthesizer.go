// Package synthesis reduces the outcomes of one workflow run into a single
// SynthesizedResult.
package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/researchflow/internal/analysis"
	"github.com/harrison/researchflow/internal/models"
)

const systemPrompt = "You are a pharmaceutical strategy lead. You combine market, trade, patent, clinical, internal and scientific intelligence into clear repurposing recommendations for executive decision-making."

// narrativeSections are requested from the long-form synthesis call.
var narrativeSections = []string{
	"Executive Summary: high-level repurposing opportunity assessment",
	"Unmet Clinical Needs: gaps in the current treatment landscape",
	"Research Momentum: active trials and emerging indications",
	"New Indication Opportunities: specific repurposing opportunities",
	"Patent/FTO Analysis: IP landscape and freedom to operate",
	"Market Potential: market size, growth and competition",
	"Strategic Recommendations: actionable next steps",
}

// Synthesizer builds the final result from successful task payloads and
// delegates narrative writing to an analysis service.
type Synthesizer struct {
	service analysis.Service
	now     func() time.Time
}

// New creates a Synthesizer. A nil service is accepted: runs where nothing
// succeeded still synthesize, anything else fails with ErrNoService.
func New(service analysis.Service) *Synthesizer {
	return &Synthesizer{service: service, now: time.Now}
}

// Partition splits outcomes into successes and non-successes, each sorted by
// task id. The result does not depend on map iteration order.
func Partition(outcomes map[string]models.TaskOutcome) (successes, failures []models.TaskOutcome) {
	for _, o := range models.SortedOutcomes(outcomes) {
		if o.Succeeded() && o.Payload != nil {
			successes = append(successes, o)
		} else {
			failures = append(failures, o)
		}
	}
	return successes, failures
}

// Synthesize produces one result from the partial or total success set.
//
// When no task succeeded the result is flagged (TotalFailure, or
// NoAnalysesRun for an empty plan) and the service is not called. A
// SynthesisError is returned only when the service is missing or fails.
func (s *Synthesizer) Synthesize(ctx context.Context, req models.WorkflowRequest, outcomes map[string]models.TaskOutcome) (*models.SynthesizedResult, error) {
	successes, failures := Partition(outcomes)
	result := s.baseResult(req, successes, failures)

	switch {
	case len(outcomes) == 0:
		result.NoAnalysesRun = true
		result.Narrative = fmt.Sprintf("No analyses were planned for %s.", req.Subject)
		result.Summary = "No analyses were run; there is nothing to synthesize."
		return result, nil
	case len(successes) == 0:
		result.TotalFailure = true
		result.Narrative = fmt.Sprintf("None of the %d planned analyses for %s completed successfully.", len(outcomes), req.Subject)
		result.Summary = "All analyses failed: " + strings.Join(incompleteLabels(result.IncompleteTasks), "; ")
		return result, nil
	}

	if s == nil || s.service == nil {
		return nil, &SynthesisError{Step: StepNarrative, Err: ErrNoService}
	}

	narrative, err := s.service.Analyze(ctx, analysis.Prompt{
		Label:  "Strategic synthesis: " + req.Subject,
		System: systemPrompt,
		User:   narrativePrompt(req, successes, result.IncompleteTasks),
		Facts:  result.KeyFindings,
	})
	if err != nil {
		return nil, &SynthesisError{Step: StepNarrative, Err: err}
	}

	summary, err := s.service.Analyze(ctx, analysis.Prompt{
		Label:  "Executive summary: " + req.Subject,
		System: systemPrompt,
		User:   summaryPrompt(req, narrative),
		Facts:  result.Recommendations,
	})
	if err != nil {
		return nil, &SynthesisError{Step: StepSummary, Err: err}
	}

	result.Narrative = narrative
	result.Summary = summary
	return result, nil
}

func (s *Synthesizer) baseResult(req models.WorkflowRequest, successes, failures []models.TaskOutcome) *models.SynthesizedResult {
	now := time.Now
	if s != nil && s.now != nil {
		now = s.now
	}

	result := &models.SynthesizedResult{
		Subject:         req.Subject,
		Query:           req.Query,
		SuccessfulTasks: make([]string, 0, len(successes)),
		IncompleteTasks: make([]models.IncompleteTask, 0, len(failures)),
		GeneratedAt:     now(),
	}

	for _, o := range successes {
		result.SuccessfulTasks = append(result.SuccessfulTasks, o.TaskID)
		name := o.Payload.Analyst
		if name == "" {
			name = o.Capability.String()
		}
		for _, f := range o.Payload.KeyFindings {
			result.KeyFindings = append(result.KeyFindings, name+": "+f)
		}
		for _, r := range o.Payload.Recommendations {
			result.Recommendations = append(result.Recommendations, name+": "+r)
		}
	}

	for _, o := range failures {
		result.IncompleteTasks = append(result.IncompleteTasks, models.IncompleteTask{
			TaskID:     o.TaskID,
			Capability: o.Capability,
			Status:     o.Status,
			Reason:     o.Reason(),
		})
		if o.Status == models.StatusTimedOut {
			result.Stats.TimedOut++
		} else {
			result.Stats.Failed++
		}
	}

	result.Stats.Planned = len(successes) + len(failures)
	result.Stats.Succeeded = len(successes)
	result.Stats.KeyFindings = len(result.KeyFindings)
	result.Stats.Recommendations = len(result.Recommendations)
	return result
}

func narrativePrompt(req models.WorkflowRequest, successes []models.TaskOutcome, incomplete []models.IncompleteTask) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Synthesize the following analysis for %s.\n\n", req.Subject)
	if req.Query != "" {
		fmt.Fprintf(&sb, "User query: %s\n\n", req.Query)
	}

	for _, o := range successes {
		fmt.Fprintf(&sb, "## %s (%s)\n%s\n\n", o.Payload.Analyst, o.Capability, strings.TrimSpace(o.Payload.Analysis))
	}

	if len(incomplete) > 0 {
		sb.WriteString("The following analyses did not complete and must be called out as gaps:\n")
		for _, label := range incompleteLabels(incomplete) {
			fmt.Fprintf(&sb, "- %s\n", label)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Based on this intelligence, provide:\n")
	for i, section := range narrativeSections {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, section)
	}
	sb.WriteString("\nFormat as a strategic report suitable for executive decision-making.")
	return sb.String()
}

func summaryPrompt(req models.WorkflowRequest, narrative string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Condense the following strategic report on %s into an executive summary of at most five sentences.\n\n", req.Subject)
	sb.WriteString(narrative)
	return sb.String()
}

func incompleteLabels(tasks []models.IncompleteTask) []string {
	labels := make([]string, 0, len(tasks))
	for _, t := range tasks {
		label := fmt.Sprintf("%s (%s)", t.Capability, t.Status)
		if t.Reason != "" {
			label += ": " + t.Reason
		}
		labels = append(labels, label)
	}
	return labels
}
