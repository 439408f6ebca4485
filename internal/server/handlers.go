package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/store"
	"github.com/harrison/researchflow/internal/workflow"
)

// StartRunRequest is the body of POST /runs.
type StartRunRequest struct {
	Subject string            `json:"subject" binding:"required"`
	Query   string            `json:"query"`
	Context map[string]string `json:"context"`
}

// RunStatus is the polling view of a run.
type RunStatus struct {
	RunID     string                 `json:"run_id"`
	Subject   string                 `json:"subject"`
	Phase     models.Phase           `json:"phase"`
	Done      int                    `json:"done"`
	Total     int                    `json:"total"`
	Outcomes  []models.TaskOutcome   `json:"outcomes"`
	Log       []models.LogEntry      `json:"log"`
	Error     *models.StageErrorInfo `json:"error,omitempty"`
	HasResult bool                   `json:"has_result"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func statusOf(snap models.Snapshot) RunStatus {
	done, total := snap.Progress()
	outcomes := models.SortedOutcomes(snap.Outcomes)
	// Raw source data can be large; status polls carry payload text only
	for i := range outcomes {
		if p := outcomes[i].Payload; p != nil && p.RawData != nil {
			trimmed := *p
			trimmed.RawData = nil
			outcomes[i].Payload = &trimmed
		}
	}
	return RunStatus{
		RunID:     snap.RunID,
		Subject:   snap.Request.Subject,
		Phase:     snap.Phase,
		Done:      done,
		Total:     total,
		Outcomes:  outcomes,
		Log:       snap.Log,
		Error:     snap.Error,
		HasResult: snap.Result != nil,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	active := 0
	for _, snap := range s.runs.List() {
		if !snap.Phase.IsTerminal() {
			active++
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "active_runs": active})
}

func (s *Server) handleStartRun(c *gin.Context) {
	var body StartRunRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, NewRequestError(http.StatusBadRequest, "invalid request body", err))
		return
	}
	req := models.NewWorkflowRequest(body.Subject, body.Query, body.Context)
	if err := req.Validate(); err != nil {
		respondError(c, NewRequestError(http.StatusBadRequest, "invalid request", err))
		return
	}

	id, err := s.runs.Start(c.Request.Context(), req, s.deadline)
	if errors.Is(err, workflow.ErrManagerClosed) {
		respondError(c, NewRequestError(http.StatusServiceUnavailable, "server is shutting down", err))
		return
	}
	if err != nil {
		respondError(c, NewRequestError(http.StatusInternalServerError, "failed to start run", err))
		return
	}

	if s.onComplete != nil {
		s.hooks.Add(1)
		go func() {
			defer s.hooks.Done()
			snap, _ := s.runs.Wait(context.Background(), id)
			s.onComplete(context.Background(), snap)
		}()
	}

	c.Header("Location", "/runs/"+id)
	c.JSON(http.StatusAccepted, gin.H{
		"run_id":     id,
		"status_url": "/runs/" + id,
		"result_url": "/runs/" + id + "/result",
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	if c.Query("source") == "history" {
		s.listHistory(c)
		return
	}
	snaps := s.runs.List()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.After(snaps[j].CreatedAt) })
	out := make([]RunStatus, len(snaps))
	for i, snap := range snaps {
		out[i] = statusOf(snap)
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *Server) listHistory(c *gin.Context) {
	if s.history == nil {
		respondError(c, NewRequestError(http.StatusNotFound, "run history is disabled", nil))
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, NewRequestError(http.StatusBadRequest, "limit must be a non-negative integer", err))
			return
		}
		limit = n
	}
	runs, err := s.history.List(c.Request.Context(), store.ListOptions{
		Subject: c.Query("subject"),
		Phase:   models.Phase(c.Query("phase")),
		Limit:   limit,
	})
	if err != nil {
		respondError(c, NewRequestError(http.StatusInternalServerError, "failed to list run history", err))
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	snap, reqErr := s.lookup(c, c.Param("id"))
	if reqErr != nil {
		respondError(c, reqErr)
		return
	}
	c.JSON(http.StatusOK, statusOf(snap))
}

// handleGetResult returns 200 with the result of a completed run, 202 while
// the run is still in flight and 409 for a failed run.
func (s *Server) handleGetResult(c *gin.Context) {
	snap, reqErr := s.lookup(c, c.Param("id"))
	if reqErr != nil {
		respondError(c, reqErr)
		return
	}

	switch snap.Phase {
	case models.PhaseCompleted:
		c.JSON(http.StatusOK, gin.H{"run_id": snap.RunID, "result": snap.Result})
	case models.PhaseFailed:
		reqErr := NewRequestError(http.StatusConflict, "run failed", nil)
		if snap.Error != nil {
			reqErr.Err = errors.New(string(snap.Error.Stage) + ": " + snap.Error.Message)
		}
		respondError(c, reqErr)
	default:
		done, total := snap.Progress()
		c.JSON(http.StatusAccepted, gin.H{"run_id": snap.RunID, "phase": snap.Phase, "done": done, "total": total})
	}
}

func (s *Server) handleCancelRun(c *gin.Context) {
	id := c.Param("id")
	snap, err := s.runs.Status(id)
	if errors.Is(err, workflow.ErrUnknownRun) {
		respondError(c, NewRequestError(http.StatusNotFound, "run "+id+" is not active", nil))
		return
	}
	if err != nil {
		respondError(c, NewRequestError(http.StatusInternalServerError, "failed to read run", err))
		return
	}
	if snap.Phase.IsTerminal() {
		respondError(c, NewRequestError(http.StatusConflict, "run already finished", nil))
		return
	}
	if err := s.runs.Cancel(id); err != nil {
		respondError(c, NewRequestError(http.StatusInternalServerError, "failed to cancel run", err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": id, "cancelled": true})
}
