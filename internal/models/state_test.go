package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase_IsTerminal(t *testing.T) {
	for _, p := range []Phase{PhaseCreated, PhasePlanning, PhaseExecuting, PhaseSynthesizing} {
		assert.False(t, p.IsTerminal(), p)
	}
	assert.True(t, PhaseCompleted.IsTerminal())
	assert.True(t, PhaseFailed.IsTerminal())
}

func TestSnapshot_ProgressAndPending(t *testing.T) {
	a := TaskSpec{ID: "a", Capability: CapabilityMarket}
	b := TaskSpec{ID: "b", Capability: CapabilityPatent}
	c := TaskSpec{ID: "c", Capability: CapabilityWeb}
	snap := Snapshot{
		PlannedTasks: []TaskSpec{a, b, c},
		Outcomes:     map[string]TaskOutcome{"b": NewSuccessOutcome(b, nil, 0)},
	}

	done, total := snap.Progress()
	assert.Equal(t, 1, done)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"a", "c"}, TaskIDs(snap.PendingTasks()))

	empty := Snapshot{}
	done, total = empty.Progress()
	assert.Zero(t, done)
	assert.Zero(t, total)
	assert.Empty(t, empty.PendingTasks())
}

func TestSnapshot_Clone(t *testing.T) {
	spec := TaskSpec{ID: "a", Capability: CapabilityMarket}
	orig := Snapshot{
		RunID:        "r1",
		Request:      NewWorkflowRequest("metformin", "q", map[string]string{"region": "EU"}),
		Phase:        PhaseCompleted,
		PlannedTasks: []TaskSpec{spec},
		Outcomes:     map[string]TaskOutcome{"a": NewSuccessOutcome(spec, nil, time.Second)},
		Log:          []LogEntry{{Phase: PhasePlanning, Message: "planned"}},
		Result:       &SynthesizedResult{KeyFindings: []string{"one"}},
		Error:        &StageErrorInfo{Stage: PhasePlanning, Message: "x"},
	}

	clone := orig.Clone()
	clone.Request.Context["region"] = "US"
	clone.PlannedTasks[0].ID = "changed"
	clone.Outcomes["b"] = TaskOutcome{TaskID: "b"}
	clone.Log[0].Message = "changed"
	clone.Result.KeyFindings[0] = "changed"
	clone.Error.Message = "changed"

	assert.Equal(t, "EU", orig.Request.Get("region"))
	assert.Equal(t, "a", orig.PlannedTasks[0].ID)
	assert.Len(t, orig.Outcomes, 1)
	assert.Equal(t, "planned", orig.Log[0].Message)
	assert.Equal(t, "one", orig.Result.KeyFindings[0])
	assert.Equal(t, "x", orig.Error.Message)
}

func TestSnapshot_CloneNilOutcomes(t *testing.T) {
	clone := Snapshot{RunID: "r"}.Clone()
	require.NotNil(t, clone.Outcomes)
	clone.Outcomes["a"] = TaskOutcome{}
}
