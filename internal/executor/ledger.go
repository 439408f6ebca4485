package executor

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/harrison/researchflow/internal/models"
)

// OutcomeLedger records at most one outcome per planned task. Once sealed it
// rejects every further write, which is how late completions after the
// workflow deadline are discarded.
type OutcomeLedger struct {
	mu       sync.Mutex
	planned  map[string]models.TaskSpec
	outcomes map[string]models.TaskOutcome
	sealed   bool
}

// NewOutcomeLedger creates a ledger for the given plan.
func NewOutcomeLedger(tasks []models.TaskSpec) *OutcomeLedger {
	planned := make(map[string]models.TaskSpec, len(tasks))
	for _, t := range tasks {
		planned[t.ID] = t
	}
	return &OutcomeLedger{
		planned:  planned,
		outcomes: make(map[string]models.TaskOutcome, len(tasks)),
	}
}

// Record closes out o.TaskID. The lock covers only the map assignment.
func (l *OutcomeLedger) Record(o models.TaskOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sealed {
		return fmt.Errorf("record %s: %w", o.TaskID, ErrLedgerSealed)
	}
	if _, ok := l.planned[o.TaskID]; !ok {
		return fmt.Errorf("record %s: %w", o.TaskID, ErrUnknownTask)
	}
	if _, ok := l.outcomes[o.TaskID]; ok {
		return fmt.Errorf("record %s: %w", o.TaskID, ErrDuplicateOutcome)
	}
	l.outcomes[o.TaskID] = o
	return nil
}

// Seal stops the ledger from accepting outcomes.
func (l *OutcomeLedger) Seal() {
	l.mu.Lock()
	l.sealed = true
	l.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (l *OutcomeLedger) Sealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sealed
}

// Pending returns how many planned tasks have no outcome yet.
func (l *OutcomeLedger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.planned) - len(l.outcomes)
}

// PendingTasks returns the planned tasks without an outcome, sorted by id.
func (l *OutcomeLedger) PendingTasks() []models.TaskSpec {
	l.mu.Lock()
	defer l.mu.Unlock()

	var pending []models.TaskSpec
	for id, spec := range l.planned {
		if _, ok := l.outcomes[id]; !ok {
			pending = append(pending, spec)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending
}

// Snapshot returns a copy of the recorded outcomes.
func (l *OutcomeLedger) Snapshot() map[string]models.TaskOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.outcomes)
}
