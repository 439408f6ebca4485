package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/researchflow/internal/models"
)

var (
	// ErrAlreadyTerminal is returned when Run is invoked on a completed or
	// failed workflow.
	ErrAlreadyTerminal = errors.New("workflow already reached a terminal phase")

	// ErrAlreadyRunning is returned when Run is invoked while another Run on
	// the same workflow is in progress.
	ErrAlreadyRunning = errors.New("workflow is already running")

	// ErrUnknownRun is returned by Manager for handles it does not track.
	ErrUnknownRun = errors.New("unknown run")

	// ErrManagerClosed is returned by Manager after Shutdown.
	ErrManagerClosed = errors.New("workflow manager is shut down")
)

// StageError is a fatal error that moved a workflow to Failed. It carries the
// stage that failed and the stage's error verbatim.
type StageError struct {
	Stage models.Phase
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	var sb strings.Builder
	sb.WriteString("workflow failed during ")
	sb.WriteString(string(e.Stage))
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStageError checks if an error is a StageError
func IsStageError(err error) bool {
	var stageErr *StageError
	return errors.As(err, &stageErr)
}

// TransitionError reports an illegal phase transition.
type TransitionError struct {
	From models.Phase
	To   models.Phase
}

// Error implements the error interface
func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}
