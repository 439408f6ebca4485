package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/researchflow/internal/models"
)

func TestManager_StartAndWait(t *testing.T) {
	exec := &mockExecutor{behaviours: map[string]behaviour{"A": {delay: 50 * time.Millisecond}, "B": {fail: true}}}
	m := NewManager(newTestEngine(fixedPlan(taskSpecs("A", "B")), exec), time.Minute)

	id, err := m.Start(context.Background(), testRequest, time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	status, err := m.Status(id)
	require.NoError(t, err)
	assert.Equal(t, id, status.RunID)
	assert.False(t, status.Phase.IsTerminal())

	snap, err := m.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCompleted, snap.Phase)
	assert.Len(t, snap.Outcomes, 2)

	assert.Len(t, m.List(), 1)
}

func TestManager_StartIgnoresCallerCancellation(t *testing.T) {
	exec := &mockExecutor{behaviours: map[string]behaviour{"A": {delay: 50 * time.Millisecond}}}
	m := NewManager(newTestEngine(fixedPlan(taskSpecs("A")), exec), 0)

	ctx, cancel := context.WithCancel(context.Background())
	id, err := m.Start(ctx, testRequest, 0)
	require.NoError(t, err)
	cancel()

	snap, err := m.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, snap.Outcomes["A"].Status)
}

func TestManager_Cancel(t *testing.T) {
	exec := &mockExecutor{behaviours: map[string]behaviour{"A": {delay: 5 * time.Second}}}
	m := NewManager(newTestEngine(fixedPlan(taskSpecs("A")), exec), 0)

	id, err := m.Start(context.Background(), testRequest, 0)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, _ := m.Status(id)
		return s.Phase == models.PhaseExecuting
	}, time.Second, time.Millisecond)

	require.NoError(t, m.Cancel(id))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, _ := m.Wait(ctx, id)
	require.True(t, snap.Phase.IsTerminal())
	assert.Equal(t, models.StatusFailed, snap.Outcomes["A"].Status)
	assert.Equal(t, models.ErrorKindCancelled, snap.Outcomes["A"].Error.Kind)
}

func TestManager_Run(t *testing.T) {
	m := NewManager(newTestEngine(fixedPlan(taskSpecs("A")), &mockExecutor{}), time.Minute)

	snap, err := m.Run(context.Background(), testRequest, time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCompleted, snap.Phase)

	status, err := m.Status(snap.RunID)
	require.NoError(t, err)
	assert.Equal(t, snap.Phase, status.Phase)
}

func TestManager_UnknownRun(t *testing.T) {
	m := NewManager(newTestEngine(fixedPlan(nil), &mockExecutor{}), time.Minute)

	_, err := m.Status("nope")
	assert.ErrorIs(t, err, ErrUnknownRun)
	_, err = m.Wait(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownRun)
	assert.ErrorIs(t, m.Cancel("nope"), ErrUnknownRun)
}

func TestManager_EvictsFinishedRuns(t *testing.T) {
	m := NewManager(newTestEngine(fixedPlan(nil), &mockExecutor{}), time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	snap, err := m.Run(context.Background(), testRequest, 0)
	require.NoError(t, err)

	_, err = m.Status(snap.RunID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = m.Status(snap.RunID)
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestManager_Forget(t *testing.T) {
	m := NewManager(newTestEngine(fixedPlan(nil), &mockExecutor{}), 0)
	snap, err := m.Run(context.Background(), testRequest, 0)
	require.NoError(t, err)

	m.Forget(snap.RunID)
	_, err = m.Status(snap.RunID)
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestManager_Resume(t *testing.T) {
	specs := taskSpecs("A", "B")
	exec := &mockExecutor{}
	m := NewManager(newTestEngine(fixedPlan(specs), exec), time.Minute)

	id, err := m.Resume(context.Background(), models.Snapshot{
		RunID:        "resumed",
		Request:      testRequest,
		Phase:        models.PhaseExecuting,
		PlannedTasks: specs,
		Outcomes: map[string]models.TaskOutcome{
			"A": models.NewFailedOutcome(specs[0], models.ErrorKindExecution, "earlier failure", 0),
		},
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "resumed", id)

	snap, err := m.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCompleted, snap.Phase)
	assert.Equal(t, []string{"B"}, exec.ran)

	_, err = m.Resume(context.Background(), snap, time.Second)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestManager_ResumeRejectsRunInFlight(t *testing.T) {
	specs := taskSpecs("A")
	exec := &mockExecutor{behaviours: map[string]behaviour{"A": {delay: 100 * time.Millisecond}}}
	m := NewManager(newTestEngine(fixedPlan(specs), exec), time.Minute)

	snapshot := models.Snapshot{
		RunID:        "r1",
		Request:      testRequest,
		Phase:        models.PhaseExecuting,
		PlannedTasks: specs,
	}
	id, err := m.Resume(context.Background(), snapshot, time.Second)
	require.NoError(t, err)

	_, err = m.Resume(context.Background(), snapshot, time.Second)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	snap, err := m.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCompleted, snap.Phase)
	assert.Equal(t, int32(1), exec.calls.Load())

	// A finished run may be resumed again under the same id.
	_, err = m.Resume(context.Background(), snapshot, time.Second)
	require.NoError(t, err)
	_, err = m.Wait(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), exec.calls.Load())
}

func TestManager_Shutdown(t *testing.T) {
	exec := &mockExecutor{behaviours: map[string]behaviour{"A": {delay: 5 * time.Second}}}
	m := NewManager(newTestEngine(fixedPlan(taskSpecs("A")), exec), 0)

	id, err := m.Start(context.Background(), testRequest, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	snap, err := m.Status(id)
	require.NoError(t, err)
	assert.True(t, snap.Phase.IsTerminal())

	_, err = m.Start(context.Background(), testRequest, 0)
	assert.ErrorIs(t, err, ErrManagerClosed)
}
