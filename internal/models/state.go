package models

import (
	"maps"
	"slices"
	"time"
)

// Phase is the lifecycle phase of a workflow run.
type Phase string

// Workflow phases, in forward order
const (
	PhaseCreated      Phase = "created"
	PhasePlanning     Phase = "planning"
	PhaseExecuting    Phase = "executing"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

// IsTerminal reports whether no further transition can leave p.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// LogEntry is one ordered status message of a run.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Phase   Phase     `json:"phase"`
	Message string    `json:"message"`
}

// StageErrorInfo records the fatal error that moved a run to PhaseFailed.
type StageErrorInfo struct {
	Stage   Phase  `json:"stage"`
	Message string `json:"message"`
}

// Snapshot is the serializable view of one workflow run. A host application
// may persist snapshots between phase transitions and resume from them.
type Snapshot struct {
	RunID        string                 `json:"run_id"`
	Request      WorkflowRequest        `json:"request"`
	Phase        Phase                  `json:"phase"`
	PlannedTasks []TaskSpec             `json:"planned_tasks"`
	Outcomes     map[string]TaskOutcome `json:"outcomes"`
	Result       *SynthesizedResult     `json:"result,omitempty"`
	Log          []LogEntry             `json:"log"`
	Error        *StageErrorInfo        `json:"error,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// PendingTasks returns planned tasks without a recorded outcome, in plan order.
func (s Snapshot) PendingTasks() []TaskSpec {
	var pending []TaskSpec
	for _, spec := range s.PlannedTasks {
		if _, ok := s.Outcomes[spec.ID]; !ok {
			pending = append(pending, spec)
		}
	}
	return pending
}

// Progress returns how many planned tasks have an outcome.
func (s Snapshot) Progress() (done, total int) {
	return len(s.Outcomes), len(s.PlannedTasks)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Request = s.Request.Clone()
	out.PlannedTasks = slices.Clone(s.PlannedTasks)
	out.Outcomes = maps.Clone(s.Outcomes)
	if out.Outcomes == nil {
		out.Outcomes = map[string]TaskOutcome{}
	}
	out.Log = slices.Clone(s.Log)
	if s.Result != nil {
		r := *s.Result
		r.KeyFindings = slices.Clone(s.Result.KeyFindings)
		r.Recommendations = slices.Clone(s.Result.Recommendations)
		r.SuccessfulTasks = slices.Clone(s.Result.SuccessfulTasks)
		r.IncompleteTasks = slices.Clone(s.Result.IncompleteTasks)
		out.Result = &r
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}
