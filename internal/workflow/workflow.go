// Package workflow sequences planning, parallel execution and synthesis for
// one research run through an explicit phase state machine.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/researchflow/internal/executor"
	"github.com/harrison/researchflow/internal/models"
)

// Planner selects the tasks for a request.
type Planner interface {
	Plan(req models.WorkflowRequest) ([]models.TaskSpec, error)
}

// Coordinator runs planned tasks and returns one outcome per task.
type Coordinator interface {
	ExecuteAll(ctx context.Context, tasks []models.TaskSpec, req models.WorkflowRequest, sink executor.OutcomeSink) map[string]models.TaskOutcome
}

// Synthesizer reduces outcomes into the final result.
type Synthesizer interface {
	Synthesize(ctx context.Context, req models.WorkflowRequest, outcomes map[string]models.TaskOutcome) (*models.SynthesizedResult, error)
}

// Logger receives workflow progress.
type Logger interface {
	LogPhase(runID string, from, to models.Phase, message string)
	LogTaskOutcome(runID string, outcome models.TaskOutcome)
	LogProgress(runID string, done, total int)
	LogSummary(snapshot models.Snapshot)
	LogWarn(message string)
}

// Checkpointer persists a snapshot after every phase transition.
type Checkpointer interface {
	Checkpoint(ctx context.Context, snapshot models.Snapshot) error
}

type nopLogger struct{}

func (nopLogger) LogPhase(string, models.Phase, models.Phase, string) {}
func (nopLogger) LogTaskOutcome(string, models.TaskOutcome)           {}
func (nopLogger) LogProgress(string, int, int)                        {}
func (nopLogger) LogSummary(models.Snapshot)                          {}
func (nopLogger) LogWarn(string)                                      {}

// Engine holds the components shared by every workflow run.
type Engine struct {
	planner      Planner
	coordinator  Coordinator
	synthesizer  Synthesizer
	logger       Logger
	checkpointer Checkpointer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the progress logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCheckpointer sets the snapshot checkpointer.
func WithCheckpointer(c Checkpointer) Option {
	return func(e *Engine) {
		e.checkpointer = c
	}
}

// NewEngine creates an Engine. Planner, coordinator and synthesizer are
// required.
func NewEngine(planner Planner, coordinator Coordinator, synthesizer Synthesizer, opts ...Option) *Engine {
	if planner == nil || coordinator == nil || synthesizer == nil {
		panic("workflow engine requires a planner, coordinator and synthesizer")
	}
	e := &Engine{
		planner:     planner,
		coordinator: coordinator,
		synthesizer: synthesizer,
		logger:      nopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewWorkflow creates a workflow in phase Created for req.
func (e *Engine) NewWorkflow(req models.WorkflowRequest) *Workflow {
	now := time.Now()
	return &Workflow{
		engine: e,
		state: models.Snapshot{
			RunID:     uuid.New().String(),
			Request:   req.Clone(),
			Phase:     models.PhaseCreated,
			Outcomes:  map[string]models.TaskOutcome{},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Restore rebuilds a workflow from a persisted snapshot. Running it continues
// from the snapshot's phase: an Executing snapshot runs only the tasks without
// an outcome.
func (e *Engine) Restore(snapshot models.Snapshot) (*Workflow, error) {
	if snapshot.RunID == "" {
		return nil, fmt.Errorf("snapshot has no run id")
	}
	if !knownPhase(snapshot.Phase) {
		return nil, fmt.Errorf("snapshot %s has unknown phase %q", snapshot.RunID, snapshot.Phase)
	}

	planned := make(map[string]bool, len(snapshot.PlannedTasks))
	for _, spec := range snapshot.PlannedTasks {
		planned[spec.ID] = true
	}
	for id := range snapshot.Outcomes {
		if !planned[id] {
			return nil, fmt.Errorf("snapshot %s has an outcome for unplanned task %s", snapshot.RunID, id)
		}
	}
	if (snapshot.Result != nil) != (snapshot.Phase == models.PhaseCompleted) {
		return nil, fmt.Errorf("snapshot %s: result must be present exactly when completed", snapshot.RunID)
	}

	return &Workflow{engine: e, state: snapshot.Clone()}, nil
}

// Workflow is one research run. All state mutation goes through its mutex;
// Status may be called concurrently with Run.
type Workflow struct {
	engine *Engine

	mu      sync.RWMutex
	state   models.Snapshot
	running bool
}

// ID returns the run id.
func (w *Workflow) ID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.RunID
}

// Status returns a copy of the current state.
func (w *Workflow) Status() models.Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.Clone()
}

// Run drives the workflow to a terminal phase and returns its final state.
//
// deadline bounds planning and task execution; tasks still running when it
// elapses are recorded as timed out and synthesis proceeds with what
// finished. A zero deadline leaves execution bounded only by ctx. The error
// is a *StageError when planning or synthesis failed, ErrAlreadyTerminal for
// a finished workflow and ErrAlreadyRunning for a concurrent call.
func (w *Workflow) Run(ctx context.Context, deadline time.Duration) (models.Snapshot, error) {
	if err := w.begin(); err != nil {
		return w.Status(), err
	}
	defer w.end()

	var deadlineAt time.Time
	if deadline > 0 {
		deadlineAt = time.Now().Add(deadline)
	}
	req := w.Status().Request

	if w.phase() == models.PhaseCreated {
		if err := w.transition(ctx, models.PhasePlanning, "Planning analyses for "+req.Subject, nil); err != nil {
			return w.Status(), err
		}
	}

	if w.phase() == models.PhasePlanning {
		tasks, err := w.engine.planner.Plan(req)
		if err != nil {
			return w.fail(ctx, models.PhasePlanning, err)
		}
		msg := fmt.Sprintf("Planned %d task(s): %s", len(tasks), strings.Join(models.TaskIDs(tasks), ", "))
		if len(tasks) == 0 {
			msg = "Planned no tasks"
		}
		err = w.transition(ctx, models.PhaseExecuting, msg, func(s *models.Snapshot) {
			s.PlannedTasks = tasks
			s.Outcomes = make(map[string]models.TaskOutcome, len(tasks))
		})
		if err != nil {
			return w.Status(), err
		}
	}

	if w.phase() == models.PhaseExecuting {
		w.execute(ctx, req, deadlineAt)

		snap := w.Status()
		successes := 0
		for _, o := range snap.Outcomes {
			if o.Succeeded() {
				successes++
			}
		}
		msg := fmt.Sprintf("Executed %d task(s): %d succeeded, %d did not", len(snap.Outcomes), successes, len(snap.Outcomes)-successes)
		if err := w.transition(ctx, models.PhaseSynthesizing, msg, nil); err != nil {
			return w.Status(), err
		}
	}

	if w.phase() == models.PhaseSynthesizing {
		result, err := w.engine.synthesizer.Synthesize(ctx, req, w.Status().Outcomes)
		if err != nil {
			return w.fail(ctx, models.PhaseSynthesizing, err)
		}
		msg := "Synthesis complete"
		switch {
		case result.NoAnalysesRun:
			msg = "Synthesis complete: no analyses were run"
		case result.TotalFailure:
			msg = "Synthesis complete: every analysis failed"
		case result.Degraded():
			msg = fmt.Sprintf("Synthesis complete: %d analysis(es) incomplete", len(result.IncompleteTasks))
		}
		err = w.transition(ctx, models.PhaseCompleted, msg, func(s *models.Snapshot) {
			s.Result = result
		})
		if err != nil {
			return w.Status(), err
		}
	}

	snap := w.Status()
	w.engine.logger.LogSummary(snap)
	return snap, nil
}

func (w *Workflow) begin() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Phase.IsTerminal() {
		return ErrAlreadyTerminal
	}
	if w.running {
		return ErrAlreadyRunning
	}
	w.running = true
	return nil
}

func (w *Workflow) end() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

func (w *Workflow) phase() models.Phase {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.Phase
}

// transition moves to phase to, applying mutate in the same critical section,
// then logs and checkpoints outside the lock.
func (w *Workflow) transition(ctx context.Context, to models.Phase, message string, mutate func(*models.Snapshot)) error {
	w.mu.Lock()
	from := w.state.Phase
	if !IsValidTransition(from, to) {
		w.mu.Unlock()
		return &TransitionError{From: from, To: to}
	}
	if mutate != nil {
		mutate(&w.state)
	}
	now := time.Now()
	w.state.Phase = to
	w.state.UpdatedAt = now
	w.state.Log = append(w.state.Log, models.LogEntry{Time: now, Phase: to, Message: message})
	snap := w.state.Clone()
	w.mu.Unlock()

	w.engine.logger.LogPhase(snap.RunID, from, to, message)
	w.checkpoint(ctx, snap)
	return nil
}

func (w *Workflow) fail(ctx context.Context, stage models.Phase, err error) (models.Snapshot, error) {
	stageErr := &StageError{Stage: stage, Err: err}
	terr := w.transition(ctx, models.PhaseFailed, stageErr.Error(), func(s *models.Snapshot) {
		s.Error = &models.StageErrorInfo{Stage: stage, Message: err.Error()}
	})
	if terr != nil {
		return w.Status(), terr
	}
	snap := w.Status()
	w.engine.logger.LogSummary(snap)
	return snap, stageErr
}

func (w *Workflow) checkpoint(ctx context.Context, snap models.Snapshot) {
	if w.engine.checkpointer == nil {
		return
	}
	// A cancelled run still records its final state.
	if err := w.engine.checkpointer.Checkpoint(context.WithoutCancel(ctx), snap); err != nil {
		w.engine.logger.LogWarn(fmt.Sprintf("run %s: checkpoint at %s failed: %v", snap.RunID, snap.Phase, err))
	}
}

// execute runs the tasks that have no outcome yet.
func (w *Workflow) execute(ctx context.Context, req models.WorkflowRequest, deadlineAt time.Time) {
	pending := w.Status().PendingTasks()
	if len(pending) == 0 {
		return
	}

	if !deadlineAt.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadlineAt)
		defer cancel()
	}

	outcomes := w.engine.coordinator.ExecuteAll(ctx, pending, req, w.recordOutcome)
	for _, o := range models.SortedOutcomes(outcomes) {
		w.recordOutcome(o)
	}
}

// recordOutcome stores an outcome for a planned task exactly once.
func (w *Workflow) recordOutcome(o models.TaskOutcome) {
	w.mu.Lock()
	if w.state.Phase != models.PhaseExecuting {
		w.mu.Unlock()
		return
	}
	if _, exists := w.state.Outcomes[o.TaskID]; exists {
		w.mu.Unlock()
		return
	}
	planned := false
	for _, spec := range w.state.PlannedTasks {
		if spec.ID == o.TaskID {
			planned = true
			break
		}
	}
	if !planned {
		w.mu.Unlock()
		return
	}
	w.state.Outcomes[o.TaskID] = o
	w.state.UpdatedAt = time.Now()
	runID := w.state.RunID
	done, total := len(w.state.Outcomes), len(w.state.PlannedTasks)
	w.mu.Unlock()

	w.engine.logger.LogTaskOutcome(runID, o)
	w.engine.logger.LogProgress(runID, done, total)
}
