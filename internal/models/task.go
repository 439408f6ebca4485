package models

import (
	"errors"
	"fmt"
	"strings"
)

// Capability identifies the kind of analysis a task provides.
type Capability string

// Registered analysis capabilities
const (
	CapabilityMarket         Capability = "market"          // Market size, growth and competition
	CapabilityTrade          Capability = "trade"           // Import/export and supply chain
	CapabilityPatent         Capability = "patent"          // Patent landscape and FTO
	CapabilityClinicalTrials Capability = "clinical_trials" // Ongoing and completed trials
	CapabilityInternal       Capability = "internal"        // Internal strategy documents
	CapabilityWeb            Capability = "web"             // Publications, guidelines, news
)

// capabilityAliases maps alternate spellings to their canonical capability.
// The keys are the normalized form produced by normalizeTag.
var capabilityAliases = map[string]Capability{
	"market":          CapabilityMarket,
	"iqvia":           CapabilityMarket,
	"trade":           CapabilityTrade,
	"exim":            CapabilityTrade,
	"patent":          CapabilityPatent,
	"patents":         CapabilityPatent,
	"ip":              CapabilityPatent,
	"clinical_trials": CapabilityClinicalTrials,
	"clinical":        CapabilityClinicalTrials,
	"trials":          CapabilityClinicalTrials,
	"internal":        CapabilityInternal,
	"web":             CapabilityWeb,
}

// AllCapabilities returns every known capability in canonical order.
func AllCapabilities() []Capability {
	return []Capability{
		CapabilityMarket,
		CapabilityTrade,
		CapabilityPatent,
		CapabilityClinicalTrials,
		CapabilityInternal,
		CapabilityWeb,
	}
}

// String returns the capability tag.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability resolves a tag or alias (case-insensitive, "-" and " "
// treated as "_") to its canonical Capability.
func ParseCapability(tag string) (Capability, error) {
	normalized := normalizeTag(tag)
	if normalized == "" {
		return "", errors.New("capability tag is empty")
	}
	if c, ok := capabilityAliases[normalized]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown capability %q", tag)
}

// CapabilityAliases returns the aliases (including the canonical tag) that
// resolve to c, in human-readable form ("clinical trials" rather than
// "clinical_trials").
func CapabilityAliases(c Capability) []string {
	var aliases []string
	for alias, target := range capabilityAliases {
		if target == c {
			aliases = append(aliases, strings.ReplaceAll(alias, "_", " "))
		}
	}
	return aliases
}

func normalizeTag(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	t = strings.ReplaceAll(t, "-", "_")
	t = strings.Join(strings.Fields(t), "_")
	return t
}

// TaskSpec describes one registered analysis task. Specs are static: they are
// defined by the registry and never mutated at runtime.
type TaskSpec struct {
	ID                  string     `json:"id" yaml:"id"`
	Capability          Capability `json:"capability" yaml:"capability"`
	Name                string     `json:"name" yaml:"name"`
	RequiredContextKeys []string   `json:"required_context_keys,omitempty" yaml:"required_context_keys,omitempty"`
	OptionalContextKeys []string   `json:"optional_context_keys,omitempty" yaml:"optional_context_keys,omitempty"`
	SubjectTypes        []string   `json:"subject_types,omitempty" yaml:"subject_types,omitempty"` // empty = applies to every subject type
}

// Validate checks if the spec has all required fields
func (t TaskSpec) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.Capability == "" {
		return fmt.Errorf("task %s: capability is required", t.ID)
	}
	if t.Name == "" {
		return fmt.Errorf("task %s: name is required", t.ID)
	}
	return nil
}

// AppliesTo reports whether the task is relevant for the given subject type.
func (t TaskSpec) AppliesTo(subjectType string) bool {
	if len(t.SubjectTypes) == 0 {
		return true
	}
	for _, st := range t.SubjectTypes {
		if strings.EqualFold(st, subjectType) {
			return true
		}
	}
	return false
}

// MissingContext returns the required context keys absent from req.
func (t TaskSpec) MissingContext(req WorkflowRequest) []string {
	var missing []string
	for _, key := range t.RequiredContextKeys {
		if strings.TrimSpace(req.Get(key)) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// Params extracts the context values this task declares (required and
// optional) from req. Keys without a value are omitted.
func (t TaskSpec) Params(req WorkflowRequest) map[string]string {
	params := make(map[string]string)
	for _, keys := range [][]string{t.RequiredContextKeys, t.OptionalContextKeys} {
		for _, key := range keys {
			if v := req.Get(key); v != "" {
				params[key] = v
			}
		}
	}
	return params
}

// TaskIDs returns the IDs of specs in order.
func TaskIDs(specs []TaskSpec) []string {
	ids := make([]string, 0, len(specs))
	for _, s := range specs {
		ids = append(ids, s.ID)
	}
	return ids
}
