package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/harrison/researchflow/internal/models"
)

func TestTaskExecutionError(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewTaskExecutionError(marketSpec, "fetch failed", underlying)

	expected := "task market-analysis: fetch failed: connection refused"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find the underlying error")
	}
	if err.Capability != models.CapabilityMarket {
		t.Errorf("Capability = %s, want market", err.Capability)
	}

	bare := NewTaskExecutionError(marketSpec, "no payload", nil)
	if bare.Error() != "task market-analysis: no payload" {
		t.Errorf("unexpected message %q", bare.Error())
	}
}

func TestTaskTimeoutError(t *testing.T) {
	err := NewTaskTimeoutError("trial-analysis", 5*time.Second)
	if err.Error() != "task trial-analysis: timeout after 5s" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("TaskTimeoutError should unwrap to context.DeadlineExceeded")
	}

	err.Context = "analysis service"
	if err.Error() != "task trial-analysis: timeout after 5s (analysis service)" {
		t.Errorf("unexpected message %q", err.Error())
	}

	deadline := NewTaskTimeoutError("web-analysis", 0)
	if deadline.Error() != "task web-analysis: workflow deadline exceeded" {
		t.Errorf("unexpected message %q", deadline.Error())
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantExecution bool
		wantTimeout   bool
	}{
		{"nil", nil, false, false},
		{"plain", errors.New("x"), false, false},
		{"execution", NewTaskExecutionError(marketSpec, "x", nil), true, false},
		{"wrapped execution", fmt.Errorf("outer: %w", NewTaskExecutionError(marketSpec, "x", nil)), true, false},
		{"timeout", NewTaskTimeoutError("a", time.Second), false, true},
		{"deadline", context.DeadlineExceeded, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTaskExecutionError(tt.err); got != tt.wantExecution {
				t.Errorf("IsTaskExecutionError() = %v, want %v", got, tt.wantExecution)
			}
			if got := IsTaskTimeoutError(tt.err); got != tt.wantTimeout {
				t.Errorf("IsTaskTimeoutError() = %v, want %v", got, tt.wantTimeout)
			}
		})
	}
}
