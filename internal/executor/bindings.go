package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/registry"
)

// Bindings is the capability to Analyst table, resolved once at startup.
type Bindings struct {
	analysts map[models.Capability]Analyst
}

// NewBindings validates that every capability in reg has an analyst and that
// no analyst is bound to an unregistered capability.
func NewBindings(reg *registry.Registry, analysts map[models.Capability]Analyst) (*Bindings, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}

	var missing []string
	bound := make(map[models.Capability]Analyst, len(analysts))
	for _, c := range reg.Capabilities() {
		a, ok := analysts[c]
		if !ok || a == nil {
			missing = append(missing, c.String())
			continue
		}
		bound[c] = a
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("no analyst bound for: %s", strings.Join(missing, ", "))
	}

	var extra []string
	for c := range analysts {
		if reg.Position(c) < 0 {
			extra = append(extra, c.String())
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, fmt.Errorf("analysts bound to unregistered capabilities: %s", strings.Join(extra, ", "))
	}

	return &Bindings{analysts: bound}, nil
}

// Analyst returns the analyst bound to c.
func (b *Bindings) Analyst(c models.Capability) (Analyst, bool) {
	if b == nil {
		return nil, false
	}
	a, ok := b.analysts[c]
	return a, ok
}
