// Package analysts implements the built-in analysis task for each capability:
// fetch the capability's data, derive findings and recommendations from it,
// and ask the analysis service for a written assessment.
package analysts

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/researchflow/internal/analysis"
	"github.com/harrison/researchflow/internal/datasource"
	"github.com/harrison/researchflow/internal/executor"
	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/registry"
)

// profile describes one analyst persona.
type profile struct {
	name     string
	role     string
	system   string
	focus    []string
	insights func(datasource.Dataset) (findings, recommendations []string, err error)
}

// CapabilityAnalyst is the analyst for one capability.
type CapabilityAnalyst struct {
	capability models.Capability
	profile    profile
	provider   datasource.Provider
	service    analysis.Service
}

// New creates the built-in analyst for c.
func New(c models.Capability, provider datasource.Provider, service analysis.Service) (*CapabilityAnalyst, error) {
	if provider == nil {
		return nil, fmt.Errorf("data provider is required")
	}
	if service == nil {
		return nil, fmt.Errorf("analysis service is required")
	}
	p, ok := profiles[c]
	if !ok {
		return nil, fmt.Errorf("no built-in analyst for capability %s", c)
	}
	return &CapabilityAnalyst{capability: c, profile: p, provider: provider, service: service}, nil
}

// Bindings builds the executor binding table for every capability in reg.
func Bindings(reg *registry.Registry, provider datasource.Provider, service analysis.Service) (*executor.Bindings, error) {
	analysts := make(map[models.Capability]executor.Analyst, reg.Len())
	for _, c := range reg.Capabilities() {
		a, err := New(c, provider, service)
		if err != nil {
			return nil, err
		}
		analysts[c] = a
	}
	return executor.NewBindings(reg, analysts)
}

// Name returns the analyst's display name.
func (a *CapabilityAnalyst) Name() string {
	return a.profile.name
}

// Analyze implements executor.Analyst.
func (a *CapabilityAnalyst) Analyze(ctx context.Context, spec models.TaskSpec, req models.WorkflowRequest) (*models.AnalysisPayload, error) {
	if spec.Capability != a.capability {
		return nil, fmt.Errorf("%s analyst cannot run %s task", a.capability, spec.Capability)
	}

	data, err := a.provider.Fetch(ctx, spec.Capability, req.Subject, spec.Params(req))
	if err != nil {
		return nil, err
	}

	findings, recommendations, err := a.profile.insights(data)
	if err != nil {
		return nil, err
	}

	text, err := a.service.Analyze(ctx, analysis.Prompt{
		Label:  fmt.Sprintf("%s: %s", a.profile.role, req.Subject),
		System: a.profile.system,
		User:   a.userPrompt(req, data),
		Facts:  findings,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis service: %w", err)
	}

	return &models.AnalysisPayload{
		Analyst:         a.profile.name,
		Role:            a.profile.role,
		Analysis:        text,
		KeyFindings:     findings,
		Recommendations: recommendations,
		Source:          data.SourceName(),
		RawData:         data,
	}, nil
}

func (a *CapabilityAnalyst) userPrompt(req models.WorkflowRequest, data datasource.Dataset) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the following data for %s:\n\n", req.Subject)
	sb.WriteString(data.Report())
	sb.WriteString("\n\n")
	if req.Query != "" {
		fmt.Fprintf(&sb, "Research question: %s\n\n", req.Query)
	}
	sb.WriteString("Based on this data, provide:\n")
	for i, f := range a.profile.focus {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, f)
	}
	sb.WriteString("\nFocus on identifying repurposing opportunities.")
	return sb.String()
}

func unexpected(want string, got datasource.Dataset) error {
	return fmt.Errorf("expected %s data, got %T", want, got)
}
