package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/harrison/researchflow/internal/models"
)

// TaskExecutor runs one planned task to completion. Implementations never
// return an error: every failure is folded into the returned outcome. They
// must not touch workflow state; inputs arrive by value and the outcome is
// returned by value.
type TaskExecutor interface {
	Execute(ctx context.Context, spec models.TaskSpec, req models.WorkflowRequest) models.TaskOutcome
}

// TaskExecutorFunc adapts a function to TaskExecutor.
type TaskExecutorFunc func(ctx context.Context, spec models.TaskSpec, req models.WorkflowRequest) models.TaskOutcome

// Execute calls f.
func (f TaskExecutorFunc) Execute(ctx context.Context, spec models.TaskSpec, req models.WorkflowRequest) models.TaskOutcome {
	return f(ctx, spec, req)
}

// Analyst performs the analysis behind one capability. Analysts may block on
// external I/O and should honour ctx.
type Analyst interface {
	Analyze(ctx context.Context, spec models.TaskSpec, req models.WorkflowRequest) (*models.AnalysisPayload, error)
}

// AnalystFunc adapts a function to Analyst.
type AnalystFunc func(ctx context.Context, spec models.TaskSpec, req models.WorkflowRequest) (*models.AnalysisPayload, error)

// Analyze calls f.
func (f AnalystFunc) Analyze(ctx context.Context, spec models.TaskSpec, req models.WorkflowRequest) (*models.AnalysisPayload, error) {
	return f(ctx, spec, req)
}

// DefaultTaskExecutor resolves a task's capability through a binding table
// and runs the bound Analyst under a per-task deadline.
type DefaultTaskExecutor struct {
	bindings *Bindings
	timeout  time.Duration
}

// NewTaskExecutor creates an executor. A zero timeout leaves tasks bounded only
// by the caller's context.
func NewTaskExecutor(bindings *Bindings, timeout time.Duration) *DefaultTaskExecutor {
	return &DefaultTaskExecutor{bindings: bindings, timeout: timeout}
}

type analystResult struct {
	payload *models.AnalysisPayload
	err     error
	panic   bool
}

// Execute runs the analyst bound to spec.Capability.
//
// The analyst runs on its own goroutine so an analyst that ignores
// cancellation cannot hold the caller past the deadline; its late result is
// dropped.
func (e *DefaultTaskExecutor) Execute(ctx context.Context, spec models.TaskSpec, req models.WorkflowRequest) models.TaskOutcome {
	start := time.Now()

	if e == nil || e.bindings == nil {
		err := NewTaskExecutionError(spec, "task executor is not configured", nil)
		return models.NewFailedOutcome(spec, models.ErrorKindExecution, err.Error(), 0)
	}

	analyst, ok := e.bindings.Analyst(spec.Capability)
	if !ok {
		err := NewTaskExecutionError(spec, fmt.Sprintf("no analyst bound for capability %s", spec.Capability), nil)
		return models.NewFailedOutcome(spec, models.ErrorKindExecution, err.Error(), 0)
	}

	if err := ctx.Err(); err != nil {
		return interruptedOutcome(spec, err, 0, 0)
	}

	taskCtx, cancel := deriveTaskContext(ctx, e.timeout)
	defer cancel()

	done := make(chan analystResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- analystResult{
					err:   fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					panic: true,
				}
			}
		}()
		payload, err := analyst.Analyze(taskCtx, spec, req.Clone())
		done <- analystResult{payload: payload, err: err}
	}()

	select {
	case res := <-done:
		return e.classify(ctx, taskCtx, spec, res, time.Since(start))
	case <-taskCtx.Done():
		return e.interrupted(ctx, spec, time.Since(start))
	}
}

// classify folds an analyst result into an outcome. Context errors count as
// an interruption only when taskCtx has actually ended; a deadline the
// analyst applied on its own is an ordinary failure.
func (e *DefaultTaskExecutor) classify(parent, taskCtx context.Context, spec models.TaskSpec, res analystResult, elapsed time.Duration) models.TaskOutcome {
	switch {
	case res.panic:
		err := NewTaskExecutionError(spec, "analyst panicked", res.err)
		return models.NewFailedOutcome(spec, models.ErrorKindPanic, err.Error(), elapsed)
	case res.err != nil:
		if taskCtx.Err() != nil && (errors.Is(res.err, context.DeadlineExceeded) || errors.Is(res.err, context.Canceled)) {
			return e.interrupted(parent, spec, elapsed)
		}
		err := NewTaskExecutionError(spec, "analysis failed", res.err)
		return models.NewFailedOutcome(spec, models.ErrorKindExecution, err.Error(), elapsed)
	case res.payload == nil:
		err := NewTaskExecutionError(spec, "analyst returned no payload", nil)
		return models.NewFailedOutcome(spec, models.ErrorKindExecution, err.Error(), elapsed)
	default:
		return models.NewSuccessOutcome(spec, res.payload, elapsed)
	}
}

// interrupted distinguishes the per-task timeout from the caller's deadline
// or cancellation.
func (e *DefaultTaskExecutor) interrupted(parent context.Context, spec models.TaskSpec, elapsed time.Duration) models.TaskOutcome {
	if err := parent.Err(); err != nil {
		return interruptedOutcome(spec, err, 0, elapsed)
	}
	return interruptedOutcome(spec, context.DeadlineExceeded, e.timeout, elapsed)
}

func deriveTaskContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}
