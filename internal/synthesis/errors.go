package synthesis

import (
	"errors"
	"strings"
)

// ErrNoService is returned when synthesis needs an analysis service and none
// is configured.
var ErrNoService = errors.New("no analysis service configured")

// Synthesis steps reported by SynthesisError
const (
	StepNarrative = "narrative"
	StepSummary   = "summary"
)

// SynthesisError reports that the reduction step itself could not run. It is
// distinct from every task having failed, which yields a result flagged
// TotalFailure.
type SynthesisError struct {
	Step string
	Err  error
}

// Error implements the error interface
func (e *SynthesisError) Error() string {
	var sb strings.Builder
	sb.WriteString("synthesis failed")
	if e.Step != "" {
		sb.WriteString(" during ")
		sb.WriteString(e.Step)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error
func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// IsSynthesisError checks if an error is a SynthesisError
func IsSynthesisError(err error) bool {
	var synthErr *SynthesisError
	return errors.As(err, &synthErr)
}
