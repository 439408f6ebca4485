package workflow

import "github.com/harrison/researchflow/internal/models"

// validTransitions defines the legal phase transitions.
// Each key is a source phase, and the value is the set of valid target phases.
// Failed is reachable only from stages without partial-result semantics.
var validTransitions = map[models.Phase]map[models.Phase]bool{
	models.PhaseCreated:      {models.PhasePlanning: true},
	models.PhasePlanning:     {models.PhaseExecuting: true, models.PhaseFailed: true},
	models.PhaseExecuting:    {models.PhaseSynthesizing: true},
	models.PhaseSynthesizing: {models.PhaseCompleted: true, models.PhaseFailed: true},
}

// IsValidTransition checks if a phase transition is legal.
func IsValidTransition(from, to models.Phase) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// knownPhase reports whether p is one of the workflow phases.
func knownPhase(p models.Phase) bool {
	if p.IsTerminal() {
		return true
	}
	_, ok := validTransitions[p]
	return ok
}
