// Package registry holds the static catalog of analysis task types.
//
// The catalog is pure data: each entry is a models.TaskSpec naming the
// capability it provides and the request context keys it reads. Executors
// resolve a spec's capability to a concrete implementation once, at startup.
package registry

import (
	"fmt"
	"slices"

	"github.com/harrison/researchflow/internal/models"
)

// Context keys read by the built-in tasks
const (
	KeyRegion           = "region"
	KeyTherapyArea      = "therapy_area"
	KeyMechanism        = "mechanism"
	KeyDocumentFilter   = "document_filter"
	KeyTargetIndication = "target_indication"
)

// SubjectMolecule is the subject type every built-in task applies to.
const SubjectMolecule = "molecule"

// Registry is an immutable, ordered catalog of task specs keyed by capability.
type Registry struct {
	specs []models.TaskSpec
	index map[models.Capability]int
}

// New builds a registry from specs. Capabilities and IDs must be unique.
func New(specs ...models.TaskSpec) (*Registry, error) {
	r := &Registry{
		specs: make([]models.TaskSpec, 0, len(specs)),
		index: make(map[models.Capability]int, len(specs)),
	}
	ids := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("invalid task spec: %w", err)
		}
		if _, dup := r.index[spec.Capability]; dup {
			return nil, fmt.Errorf("capability %q registered twice", spec.Capability)
		}
		if ids[spec.ID] {
			return nil, fmt.Errorf("task id %q registered twice", spec.ID)
		}
		ids[spec.ID] = true
		r.index[spec.Capability] = len(r.specs)
		r.specs = append(r.specs, cloneSpec(spec))
	}
	return r, nil
}

// MustNew is like New but panics on error. Intended for static catalogs.
func MustNew(specs ...models.TaskSpec) *Registry {
	r, err := New(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the built-in research catalog.
func Default() *Registry {
	molecule := []string{SubjectMolecule}
	return MustNew(
		models.TaskSpec{
			ID:                  "market-analysis",
			Capability:          models.CapabilityMarket,
			Name:                "Market Intelligence",
			OptionalContextKeys: []string{KeyRegion},
			SubjectTypes:        molecule,
		},
		models.TaskSpec{
			ID:           "trade-analysis",
			Capability:   models.CapabilityTrade,
			Name:         "Trade Intelligence",
			SubjectTypes: molecule,
		},
		models.TaskSpec{
			ID:                  "patent-analysis",
			Capability:          models.CapabilityPatent,
			Name:                "Patent Landscape",
			OptionalContextKeys: []string{KeyTherapyArea},
			SubjectTypes:        molecule,
		},
		models.TaskSpec{
			ID:                  "trial-analysis",
			Capability:          models.CapabilityClinicalTrials,
			Name:                "Clinical Trials",
			OptionalContextKeys: []string{KeyMechanism},
			SubjectTypes:        molecule,
		},
		models.TaskSpec{
			ID:                  "internal-analysis",
			Capability:          models.CapabilityInternal,
			Name:                "Internal Insights",
			OptionalContextKeys: []string{KeyDocumentFilter},
			SubjectTypes:        molecule,
		},
		models.TaskSpec{
			ID:                  "web-analysis",
			Capability:          models.CapabilityWeb,
			Name:                "Web Intelligence",
			OptionalContextKeys: []string{KeyTargetIndication},
			SubjectTypes:        molecule,
		},
	)
}

// All returns every spec in registration order.
func (r *Registry) All() []models.TaskSpec {
	out := make([]models.TaskSpec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, cloneSpec(s))
	}
	return out
}

// Lookup returns the spec registered for c.
func (r *Registry) Lookup(c models.Capability) (models.TaskSpec, bool) {
	i, ok := r.index[c]
	if !ok {
		return models.TaskSpec{}, false
	}
	return cloneSpec(r.specs[i]), true
}

// Capabilities returns the registered capabilities in registration order.
func (r *Registry) Capabilities() []models.Capability {
	out := make([]models.Capability, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s.Capability)
	}
	return out
}

// Position returns the registration index of c, or -1.
func (r *Registry) Position(c models.Capability) int {
	if i, ok := r.index[c]; ok {
		return i
	}
	return -1
}

// Len returns the number of registered specs.
func (r *Registry) Len() int {
	return len(r.specs)
}

func cloneSpec(s models.TaskSpec) models.TaskSpec {
	s.RequiredContextKeys = slices.Clone(s.RequiredContextKeys)
	s.OptionalContextKeys = slices.Clone(s.OptionalContextKeys)
	s.SubjectTypes = slices.Clone(s.SubjectTypes)
	return s
}
