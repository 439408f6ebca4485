package models

import (
	"sort"
	"time"
)

// TaskStatus is the terminal status of one task.
type TaskStatus string

// Task outcome status constants
const (
	StatusSuccess  TaskStatus = "success"   // Task produced a payload
	StatusFailed   TaskStatus = "failed"    // Task raised an error or was cancelled
	StatusTimedOut TaskStatus = "timed_out" // Task exceeded its own or the workflow deadline
)

// ErrorKind classifies why a task did not succeed.
type ErrorKind string

// Error kinds recorded on failed outcomes
const (
	ErrorKindExecution ErrorKind = "execution"
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindPanic     ErrorKind = "panic"
	ErrorKindCancelled ErrorKind = "cancelled"
)

// ErrorDetail is the structured error carried by a non-successful outcome.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// AnalysisPayload is the normalized output of one analysis task.
type AnalysisPayload struct {
	Analyst         string   `json:"analyst"`
	Role            string   `json:"role"`
	Analysis        string   `json:"analysis"`
	KeyFindings     []string `json:"key_findings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Source          string   `json:"source,omitempty"`
	RawData         any      `json:"raw_data,omitempty"`
}

// TaskOutcome is produced exactly once per planned task and is immutable once
// recorded.
type TaskOutcome struct {
	TaskID      string           `json:"task_id"`
	Capability  Capability       `json:"capability"`
	Status      TaskStatus       `json:"status"`
	Payload     *AnalysisPayload `json:"payload,omitempty"`
	Error       *ErrorDetail     `json:"error,omitempty"`
	Duration    time.Duration    `json:"duration"`
	Attempts    int              `json:"attempts"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Succeeded reports whether the task produced a payload.
func (o TaskOutcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Reason returns the error message for a non-successful outcome.
func (o TaskOutcome) Reason() string {
	if o.Error == nil {
		return ""
	}
	return o.Error.Message
}

// NewSuccessOutcome builds a success outcome for spec.
func NewSuccessOutcome(spec TaskSpec, payload *AnalysisPayload, duration time.Duration) TaskOutcome {
	return TaskOutcome{
		TaskID:      spec.ID,
		Capability:  spec.Capability,
		Status:      StatusSuccess,
		Payload:     payload,
		Duration:    duration,
		Attempts:    1,
		CompletedAt: time.Now(),
	}
}

// NewFailedOutcome builds a failed outcome with the given error kind.
func NewFailedOutcome(spec TaskSpec, kind ErrorKind, msg string, duration time.Duration) TaskOutcome {
	return TaskOutcome{
		TaskID:      spec.ID,
		Capability:  spec.Capability,
		Status:      StatusFailed,
		Error:       &ErrorDetail{Kind: kind, Message: msg},
		Duration:    duration,
		Attempts:    1,
		CompletedAt: time.Now(),
	}
}

// NewTimedOutOutcome builds a timed-out outcome.
func NewTimedOutOutcome(spec TaskSpec, msg string, duration time.Duration) TaskOutcome {
	o := NewFailedOutcome(spec, ErrorKindTimeout, msg, duration)
	o.Status = StatusTimedOut
	return o
}

// SortedOutcomes returns the outcomes ordered by task id.
func SortedOutcomes(outcomes map[string]TaskOutcome) []TaskOutcome {
	out := make([]TaskOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

// IncompleteTask names a planned task that did not produce a usable payload.
type IncompleteTask struct {
	TaskID     string     `json:"task_id"`
	Capability Capability `json:"capability"`
	Status     TaskStatus `json:"status"`
	Reason     string     `json:"reason,omitempty"`
}

// SynthesisStats summarises a synthesized result.
type SynthesisStats struct {
	Planned         int `json:"planned"`
	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	TimedOut        int `json:"timed_out"`
	KeyFindings     int `json:"key_findings"`
	Recommendations int `json:"recommendations"`
}

// SynthesizedResult is the reduction of all task outcomes of one run.
type SynthesizedResult struct {
	Subject         string           `json:"subject"`
	Query           string           `json:"query"`
	Narrative       string           `json:"narrative"`
	Summary         string           `json:"summary"`
	KeyFindings     []string         `json:"key_findings,omitempty"`
	Recommendations []string         `json:"recommendations,omitempty"`
	SuccessfulTasks []string         `json:"successful_tasks"`
	IncompleteTasks []IncompleteTask `json:"incomplete_tasks"`
	TotalFailure    bool             `json:"total_failure"`   // Tasks were planned but none succeeded
	NoAnalysesRun   bool             `json:"no_analyses_run"` // The plan was empty
	Stats           SynthesisStats   `json:"stats"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Degraded reports whether any planned analysis is missing from the result.
func (r *SynthesizedResult) Degraded() bool {
	return r != nil && len(r.IncompleteTasks) > 0
}
