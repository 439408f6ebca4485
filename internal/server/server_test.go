package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/store"
	"github.com/harrison/researchflow/internal/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRuns struct {
	mu        sync.Mutex
	snaps     map[string]models.Snapshot
	started   []models.WorkflowRequest
	deadlines []time.Duration
	cancelled []string
	startErr  error
}

func newFakeRuns(snaps ...models.Snapshot) *fakeRuns {
	f := &fakeRuns{snaps: map[string]models.Snapshot{}}
	for _, s := range snaps {
		f.snaps[s.RunID] = s
	}
	return f
}

func (f *fakeRuns) Start(_ context.Context, req models.WorkflowRequest, deadline time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, req)
	f.deadlines = append(f.deadlines, deadline)
	id := "run-new"
	f.snaps[id] = models.Snapshot{
		RunID:     id,
		Request:   req,
		Phase:     models.PhaseCompleted,
		Result:    &models.SynthesizedResult{Summary: "done"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return id, nil
}

func (f *fakeRuns) Status(id string) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[id]
	if !ok {
		return models.Snapshot{}, workflow.ErrUnknownRun
	}
	return s, nil
}

func (f *fakeRuns) Wait(_ context.Context, id string) (models.Snapshot, error) {
	return f.Status(id)
}

func (f *fakeRuns) Cancel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeRuns) List() []models.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Snapshot
	for _, s := range f.snaps {
		out = append(out, s)
	}
	return out
}

func snapshot(id string, phase models.Phase) models.Snapshot {
	spec := models.TaskSpec{ID: "market", Capability: models.CapabilityMarket}
	return models.Snapshot{
		RunID:        id,
		Request:      models.NewWorkflowRequest("Metformin", "repurposing?", nil),
		Phase:        phase,
		PlannedTasks: []models.TaskSpec{spec},
		Outcomes:     map[string]models.TaskOutcome{},
		CreatedAt:    time.Now().Add(-time.Minute),
		UpdatedAt:    time.Now(),
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	info, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error object in %s", w.Body.String())
	return info["code"].(string)
}

func TestHealth(t *testing.T) {
	runs := newFakeRuns(snapshot("a", models.PhaseExecuting), snapshot("b", models.PhaseCompleted))
	w := do(t, New(runs).Handler(), http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["active_runs"])
}

func TestStartRun(t *testing.T) {
	runs := newFakeRuns()
	hooked := make(chan models.Snapshot, 1)
	srv := New(runs,
		WithDeadline(3*time.Minute),
		WithCompletionHook(func(_ context.Context, snap models.Snapshot) { hooked <- snap }),
	)

	w := do(t, srv.Handler(), http.MethodPost, "/runs",
		`{"subject":" Metformin ","query":"oncology?","context":{"indication":"oncology"}}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, "run-new", body["run_id"])
	assert.Equal(t, "/runs/run-new", body["status_url"])
	assert.Equal(t, "/runs/run-new/result", body["result_url"])
	assert.Equal(t, "/runs/run-new", w.Header().Get("Location"))

	require.Len(t, runs.started, 1)
	assert.Equal(t, "Metformin", runs.started[0].Subject)
	assert.Equal(t, "oncology", runs.started[0].Get("indication"))
	assert.Equal(t, 3*time.Minute, runs.deadlines[0])

	select {
	case snap := <-hooked:
		assert.Equal(t, "run-new", snap.RunID)
	case <-time.After(2 * time.Second):
		t.Fatal("completion hook was not called")
	}
	srv.WaitHooks()
}

func TestStartRun_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"subject":`},
		{name: "missing subject", body: `{"query":"x"}`},
		{name: "blank subject", body: `{"subject":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := newFakeRuns()
			w := do(t, New(runs).Handler(), http.MethodPost, "/runs", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, ErrBadRequestCode, errorCode(t, w))
			assert.Empty(t, runs.started)
		})
	}
}

func TestStartRun_ManagerClosed(t *testing.T) {
	runs := newFakeRuns()
	runs.startErr = workflow.ErrManagerClosed
	w := do(t, New(runs).Handler(), http.MethodPost, "/runs", `{"subject":"Metformin"}`)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, ErrUnavailableCode, errorCode(t, w))
}

func TestGetRun(t *testing.T) {
	snap := snapshot("r1", models.PhaseExecuting)
	snap.Outcomes["market"] = models.TaskOutcome{
		TaskID:     "market",
		Capability: models.CapabilityMarket,
		Status:     models.StatusSuccess,
		Payload:    &models.AnalysisPayload{Analysis: "ok", RawData: map[string]any{"rows": 10}},
	}
	srv := New(newFakeRuns(snap))

	w := do(t, srv.Handler(), http.MethodGet, "/runs/r1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var status RunStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "r1", status.RunID)
	assert.Equal(t, models.PhaseExecuting, status.Phase)
	assert.Equal(t, 1, status.Done)
	assert.Equal(t, 1, status.Total)
	require.Len(t, status.Outcomes, 1)
	assert.Nil(t, status.Outcomes[0].Payload.RawData)
	assert.False(t, status.HasResult)

	// the stored snapshot keeps its raw data
	kept, _ := srv.runs.Status("r1")
	assert.NotNil(t, kept.Outcomes["market"].Payload.RawData)
}

func TestGetRun_NotFound(t *testing.T) {
	w := do(t, New(newFakeRuns()).Handler(), http.MethodGet, "/runs/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrNotFoundCode, errorCode(t, w))
}

func TestGetRun_FallsBackToHistory(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer st.Close()

	old := snapshot("old", models.PhaseCompleted)
	old.Result = &models.SynthesizedResult{Summary: "archived"}
	require.NoError(t, st.Checkpoint(context.Background(), old))

	srv := New(newFakeRuns(), WithHistory(st))

	w := do(t, srv.Handler(), http.MethodGet, "/runs/old", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode(t, w)["phase"])

	w = do(t, srv.Handler(), http.MethodGet, "/runs/old/result", "")
	require.Equal(t, http.StatusOK, w.Code)
	result := decode(t, w)["result"].(map[string]any)
	assert.Equal(t, "archived", result["summary"])

	w = do(t, srv.Handler(), http.MethodGet, "/runs?source=history&subject=metformin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["runs"], 1)
}

func TestListRuns_HistoryDisabled(t *testing.T) {
	w := do(t, New(newFakeRuns()).Handler(), http.MethodGet, "/runs?source=history", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRuns(t *testing.T) {
	older := snapshot("older", models.PhaseCompleted)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := snapshot("newer", models.PhaseExecuting)

	w := do(t, New(newFakeRuns(older, newer)).Handler(), http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Runs []RunStatus `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Runs, 2)
	assert.Equal(t, "newer", body.Runs[0].RunID)
	assert.Equal(t, "older", body.Runs[1].RunID)
}

func TestGetResult(t *testing.T) {
	failed := snapshot("failed", models.PhaseFailed)
	failed.Error = &models.StageErrorInfo{Stage: models.PhasePlanning, Message: "no tasks"}
	completed := snapshot("done", models.PhaseCompleted)
	completed.Result = &models.SynthesizedResult{Summary: "summary"}
	running := snapshot("running", models.PhaseExecuting)

	h := New(newFakeRuns(failed, completed, running)).Handler()

	t.Run("completed", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/runs/done/result", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "done", decode(t, w)["run_id"])
	})
	t.Run("in flight", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/runs/running/result", "")
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "executing", decode(t, w)["phase"])
	})
	t.Run("failed", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/runs/failed/result", "")
		require.Equal(t, http.StatusConflict, w.Code)
		body := decode(t, w)
		info := body["error"].(map[string]any)
		assert.Equal(t, ErrConflictCode, info["code"])
		assert.Contains(t, info["details"], "no tasks")
	})
	t.Run("unknown", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/runs/nope/result", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCancelRun(t *testing.T) {
	runs := newFakeRuns(snapshot("active", models.PhaseExecuting), snapshot("done", models.PhaseCompleted))
	h := New(runs).Handler()

	w := do(t, h, http.MethodDelete, "/runs/active", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"active"}, runs.cancelled)

	w = do(t, h, http.MethodDelete, "/runs/done", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodDelete, "/runs/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, runs.cancelled, 1)
}

func TestRequestError(t *testing.T) {
	inner := errors.New("boom")
	err := NewRequestError(http.StatusInternalServerError, "failed", inner)

	assert.Equal(t, "failed: boom", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.True(t, IsRequestError(err))
	assert.False(t, IsRequestError(inner))
	assert.Equal(t, ErrInternalCode, err.info().Code)
	assert.Equal(t, "failed", NewRequestError(http.StatusBadRequest, "failed", nil).Error())
}

type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (r *recordingLogger) LogInfo(m string) { r.mu.Lock(); r.infos = append(r.infos, m); r.mu.Unlock() }
func (r *recordingLogger) LogWarn(m string) { r.mu.Lock(); r.warns = append(r.warns, m); r.mu.Unlock() }

func TestLoggerMiddleware(t *testing.T) {
	log := &recordingLogger{}
	h := New(newFakeRuns(), WithLogger(log)).Handler()

	do(t, h, http.MethodGet, "/healthz", "")

	require.Len(t, log.infos, 1)
	assert.Contains(t, log.infos[0], "GET /healthz 200")
	assert.Empty(t, log.warns)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	srv := New(newFakeRuns())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
