package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/researchflow/internal/models"
)

// Ledger errors returned by OutcomeLedger.Record.
var (
	ErrUnknownTask      = errors.New("task is not part of the plan")
	ErrDuplicateOutcome = errors.New("outcome already recorded")
	ErrLedgerSealed     = errors.New("ledger is sealed")
)

// TaskExecutionError represents an error raised while a single task ran.
// It never crosses the coordinator boundary: the executor folds it into a
// failed TaskOutcome.
type TaskExecutionError struct {
	TaskID     string            // Task that failed
	Capability models.Capability // Capability the task provides
	Message    string            // Human-readable error message
	Err        error             // Underlying error (optional)
	Timestamp  time.Time         // When the error occurred
}

// NewTaskExecutionError creates a new TaskExecutionError with the current timestamp.
func NewTaskExecutionError(spec models.TaskSpec, msg string, err error) *TaskExecutionError {
	return &TaskExecutionError{
		TaskID:     spec.ID,
		Capability: spec.Capability,
		Message:    msg,
		Err:        err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface for TaskExecutionError.
func (e *TaskExecutionError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("task %s: %s", e.TaskID, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *TaskExecutionError) Unwrap() error {
	return e.Err
}

// TaskTimeoutError represents a task that exceeded its own deadline or the
// workflow deadline.
type TaskTimeoutError struct {
	TaskID          string        // Task that timed out
	TimeoutDuration time.Duration // Configured timeout, zero when the workflow deadline fired
	Context         string        // Additional context (optional)
	Timestamp       time.Time     // When the timeout occurred
}

// NewTaskTimeoutError creates a new TaskTimeoutError with the current timestamp.
func NewTaskTimeoutError(taskID string, duration time.Duration) *TaskTimeoutError {
	return &TaskTimeoutError{
		TaskID:          taskID,
		TimeoutDuration: duration,
		Timestamp:       time.Now(),
	}
}

// Error implements the error interface for TaskTimeoutError.
func (e *TaskTimeoutError) Error() string {
	var sb strings.Builder
	if e.TimeoutDuration > 0 {
		sb.WriteString(fmt.Sprintf("task %s: timeout after %v", e.TaskID, e.TimeoutDuration))
	} else {
		sb.WriteString(fmt.Sprintf("task %s: workflow deadline exceeded", e.TaskID))
	}
	if e.Context != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Context))
	}
	return sb.String()
}

// Unwrap returns context.DeadlineExceeded to support error wrapping.
func (e *TaskTimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// IsTaskExecutionError checks if the error is or wraps a TaskExecutionError.
func IsTaskExecutionError(err error) bool {
	if err == nil {
		return false
	}
	var te *TaskExecutionError
	return errors.As(err, &te)
}

// IsTaskTimeoutError checks if the error is or wraps a TaskTimeoutError or context.DeadlineExceeded.
func IsTaskTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var te *TaskTimeoutError
	if errors.As(err, &te) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// interruptedOutcome builds the outcome of a task that was stopped by its
// context rather than finishing on its own.
func interruptedOutcome(spec models.TaskSpec, cause error, timeout time.Duration, elapsed time.Duration) models.TaskOutcome {
	if errors.Is(cause, context.DeadlineExceeded) {
		return models.NewTimedOutOutcome(spec, NewTaskTimeoutError(spec.ID, timeout).Error(), elapsed)
	}
	msg := NewTaskExecutionError(spec, "cancelled", cause).Error()
	return models.NewFailedOutcome(spec, models.ErrorKindCancelled, msg, elapsed)
}
