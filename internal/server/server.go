// Package server exposes workflow runs over HTTP: clients start a run, poll
// its status and fetch the synthesized result once it completes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/store"
	"github.com/harrison/researchflow/internal/workflow"
)

// Runs is the run manager surface the server drives.
type Runs interface {
	Start(ctx context.Context, req models.WorkflowRequest, deadline time.Duration) (string, error)
	Status(id string) (models.Snapshot, error)
	Wait(ctx context.Context, id string) (models.Snapshot, error)
	Cancel(id string) error
	List() []models.Snapshot
}

// History looks up runs no longer held in memory.
type History interface {
	Get(ctx context.Context, runID string) (models.Snapshot, error)
	List(ctx context.Context, opts store.ListOptions) ([]store.RunSummary, error)
}

// Logger receives request and lifecycle messages.
type Logger interface {
	LogInfo(message string)
	LogWarn(message string)
}

type nopLogger struct{}

func (nopLogger) LogInfo(string) {}
func (nopLogger) LogWarn(string) {}

// CompletionHook runs after a run started over HTTP finishes.
type CompletionHook func(ctx context.Context, snapshot models.Snapshot)

// Server serves the run API.
type Server struct {
	runs       Runs
	history    History
	deadline   time.Duration
	onComplete CompletionHook
	log        Logger
	router     *gin.Engine

	hooks sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithHistory lets status and result lookups fall back to run history.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithDeadline sets the execution deadline applied to every run.
func WithDeadline(d time.Duration) Option {
	return func(s *Server) { s.deadline = d }
}

// WithCompletionHook registers a hook called once per finished run.
func WithCompletionHook(h CompletionHook) Option {
	return func(s *Server) { s.onComplete = h }
}

// WithLogger sets the request logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Server and builds its router.
func New(runs Runs, opts ...Option) *Server {
	s := &Server{runs: runs, log: nopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	s.buildRouter()
	return s
}

func (s *Server) buildRouter() {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(s.log))

	router.GET("/healthz", s.handleHealth)
	router.GET("/runs", s.handleListRuns)
	router.POST("/runs", s.handleStartRun)
	router.GET("/runs/:id", s.handleGetRun)
	router.GET("/runs/:id/result", s.handleGetResult)
	router.DELETE("/runs/:id", s.handleCancelRun)

	s.router = router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully and waits for pending completion hooks.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.LogInfo(fmt.Sprintf("listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// WaitHooks blocks until every pending completion hook has returned.
func (s *Server) WaitHooks() {
	s.hooks.Wait()
}

func loggerMiddleware(log Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		msg := fmt.Sprintf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.LogWarn(msg)
			return
		}
		log.LogInfo(msg)
	}
}

// lookup finds a run in memory, then in history.
func (s *Server) lookup(c *gin.Context, id string) (models.Snapshot, *RequestError) {
	snap, err := s.runs.Status(id)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, workflow.ErrUnknownRun) {
		return models.Snapshot{}, NewRequestError(http.StatusInternalServerError, "failed to read run", err)
	}
	if s.history != nil {
		snap, err := s.history.Get(c.Request.Context(), id)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return models.Snapshot{}, NewRequestError(http.StatusInternalServerError, "failed to read run history", err)
		}
	}
	return models.Snapshot{}, NewRequestError(http.StatusNotFound, fmt.Sprintf("run %s not found", id), nil)
}
