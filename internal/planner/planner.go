// Package planner selects which registered analysis tasks a request runs.
package planner

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/registry"
)

// Context hint keys understood by the planner
const (
	HintTasks       = "tasks"        // Comma-separated capability tags to run, or "none"
	HintExclude     = "exclude"      // Comma-separated capability tags to skip
	HintSubjectType = "subject_type" // Subject type used to filter tasks
)

// DefaultSubjectType is assumed when the request carries no subject_type hint.
const DefaultSubjectType = registry.SubjectMolecule

const hintNone = "none"

// PlanningError reports a request the planner cannot turn into a plan.
type PlanningError struct {
	Reason string
	Err    error
}

// Error implements the error interface for PlanningError.
func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("planning failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("planning failed: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *PlanningError) Unwrap() error {
	return e.Err
}

// IsPlanningError checks if the error is or wraps a PlanningError.
func IsPlanningError(err error) bool {
	if err == nil {
		return false
	}
	var pe *PlanningError
	return errors.As(err, &pe)
}

// Planner turns a request into an ordered task list. It holds no mutable
// state, so one Planner may serve any number of concurrent runs.
type Planner struct {
	registry *registry.Registry
	phrases  []phrase
}

type phrase struct {
	capability models.Capability
	pattern    *regexp.Regexp
}

// New creates a planner over reg.
func New(reg *registry.Registry) *Planner {
	p := &Planner{registry: reg}
	for _, c := range reg.Capabilities() {
		for _, alias := range models.CapabilityAliases(c) {
			quoted := strings.ReplaceAll(regexp.QuoteMeta(alias), " ", `[\s_-]+`)
			pat := regexp.MustCompile(`(?i)\b(?:` + quoted + `\s+only|only\s+` + quoted + `)\b`)
			p.phrases = append(p.phrases, phrase{capability: c, pattern: pat})
		}
	}
	return p
}

// Plan selects the tasks to run for req, in registry order.
//
// Every registered task relevant to the subject type runs by default. The
// "tasks" hint or an "<capability> only" phrase in the query narrows the set
// and "exclude" removes from it. A plan may be empty.
func (p *Planner) Plan(req models.WorkflowRequest) ([]models.TaskSpec, error) {
	if err := req.Validate(); err != nil {
		return nil, &PlanningError{Reason: "invalid request", Err: err}
	}

	subjectType := strings.TrimSpace(req.Get(HintSubjectType))
	if subjectType == "" {
		subjectType = DefaultSubjectType
	}

	candidates := make([]models.TaskSpec, 0, p.registry.Len())
	for _, spec := range p.registry.All() {
		if spec.AppliesTo(subjectType) {
			candidates = append(candidates, spec)
		}
	}

	selected, explicit, err := p.selection(req)
	if err != nil {
		return nil, err
	}

	excluded, err := parseTags(req.Get(HintExclude))
	if err != nil {
		return nil, &PlanningError{Reason: "invalid exclude hint", Err: err}
	}

	plan := make([]models.TaskSpec, 0, len(candidates))
	for _, spec := range candidates {
		if selected != nil && !selected[spec.Capability] {
			continue
		}
		if excluded[spec.Capability] {
			continue
		}
		if missing := spec.MissingContext(req); len(missing) > 0 {
			if explicit {
				return nil, &PlanningError{
					Reason: fmt.Sprintf("task %s requires context %s", spec.ID, strings.Join(missing, ", ")),
				}
			}
			continue
		}
		plan = append(plan, spec)
	}

	if explicit {
		for c := range selected {
			if !slices.ContainsFunc(candidates, func(s models.TaskSpec) bool { return s.Capability == c }) {
				return nil, &PlanningError{
					Reason: fmt.Sprintf("capability %s does not apply to subject type %q", c, subjectType),
				}
			}
		}
	}

	return plan, nil
}

// selection returns the capabilities the request narrows to, or nil when it
// does not narrow. explicit is true when the set came from the tasks hint.
func (p *Planner) selection(req models.WorkflowRequest) (map[models.Capability]bool, bool, error) {
	if req.Has(HintTasks) {
		raw := strings.TrimSpace(req.Get(HintTasks))
		if strings.EqualFold(raw, hintNone) {
			return map[models.Capability]bool{}, true, nil
		}
		tags, err := parseTags(raw)
		if err != nil {
			return nil, false, &PlanningError{Reason: "invalid tasks hint", Err: err}
		}
		if len(tags) == 0 {
			return nil, false, &PlanningError{Reason: "tasks hint is empty"}
		}
		for c := range tags {
			if p.registry.Position(c) < 0 {
				return nil, false, &PlanningError{Reason: fmt.Sprintf("capability %s is not registered", c)}
			}
		}
		return tags, true, nil
	}

	var fromQuery map[models.Capability]bool
	for _, ph := range p.phrases {
		if ph.pattern.MatchString(req.Query) {
			if fromQuery == nil {
				fromQuery = make(map[models.Capability]bool)
			}
			fromQuery[ph.capability] = true
		}
	}
	return fromQuery, false, nil
}

func parseTags(raw string) (map[models.Capability]bool, error) {
	tags := make(map[models.Capability]bool)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := models.ParseCapability(part)
		if err != nil {
			return nil, err
		}
		tags[c] = true
	}
	return tags, nil
}
