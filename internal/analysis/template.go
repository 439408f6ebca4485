package analysis

import (
	"context"
	"fmt"
	"strings"
)

// TemplateService writes analysis text from a prompt's structured facts
// without calling any external model. Output is deterministic.
type TemplateService struct{}

// NewTemplateService creates a TemplateService.
func NewTemplateService() *TemplateService {
	return &TemplateService{}
}

// Analyze implements Service.
func (s *TemplateService) Analyze(ctx context.Context, p Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	label := p.Label
	if label == "" {
		label = "Analysis"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", label)
	if len(p.Facts) == 0 {
		sb.WriteString("No structured evidence was available for this analysis.")
		return sb.String(), nil
	}

	sb.WriteString("Assessment based on the available evidence:\n")
	for _, f := range p.Facts {
		fmt.Fprintf(&sb, "- %s\n", f)
	}
	fmt.Fprintf(&sb, "\nTaken together, %d data points inform this view.", len(p.Facts))
	return sb.String(), nil
}
