package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harrison/researchflow/internal/models"
)

// DefaultRetention is how long a finished run stays queryable.
const DefaultRetention = time.Hour

// run tracks one workflow owned by a Manager.
type run struct {
	wf         *Workflow
	cancel     context.CancelFunc
	done       chan struct{}
	err        error
	finishedAt time.Time
}

// Manager is the host-facing invocation surface: it starts runs in the
// background, hands out run ids and serves status polls.
type Manager struct {
	engine    *Engine
	retention time.Duration
	now       func() time.Time

	mu     sync.Mutex
	runs   map[string]*run
	closed bool
	wg     sync.WaitGroup
}

// NewManager creates a Manager. Finished runs are evicted after retention;
// a retention <= 0 keeps them until Forget.
func NewManager(engine *Engine, retention time.Duration) *Manager {
	return &Manager{
		engine:    engine,
		retention: retention,
		now:       time.Now,
		runs:      make(map[string]*run),
	}
}

// Engine returns the engine runs are created with.
func (m *Manager) Engine() *Engine {
	return m.engine
}

// Start launches a run for req in the background and returns its id. The run
// keeps ctx's values but not its cancellation; use Cancel to stop it.
func (m *Manager) Start(ctx context.Context, req models.WorkflowRequest, deadline time.Duration) (string, error) {
	return m.startWorkflow(ctx, m.engine.NewWorkflow(req), deadline)
}

// Resume restores snapshot and continues it in the background.
func (m *Manager) Resume(ctx context.Context, snapshot models.Snapshot, deadline time.Duration) (string, error) {
	wf, err := m.engine.Restore(snapshot)
	if err != nil {
		return "", err
	}
	if wf.Status().Phase.IsTerminal() {
		return "", ErrAlreadyTerminal
	}
	return m.startWorkflow(ctx, wf, deadline)
}

func (m *Manager) startWorkflow(ctx context.Context, wf *Workflow, deadline time.Duration) (string, error) {
	r, runCtx, err := m.register(context.WithoutCancel(ctx), wf)
	if err != nil {
		return "", err
	}
	go m.execute(runCtx, r, deadline)
	return wf.ID(), nil
}

// Run executes a run for req synchronously. The run is visible to Status while
// it executes.
func (m *Manager) Run(ctx context.Context, req models.WorkflowRequest, deadline time.Duration) (models.Snapshot, error) {
	wf := m.engine.NewWorkflow(req)
	r, runCtx, err := m.register(ctx, wf)
	if err != nil {
		return wf.Status(), err
	}
	m.execute(runCtx, r, deadline)
	return m.result(r)
}

// Status returns the current state of a run.
func (m *Manager) Status(id string) (models.Snapshot, error) {
	r, err := m.lookup(id)
	if err != nil {
		return models.Snapshot{}, err
	}
	return r.wf.Status(), nil
}

// Wait blocks until the run finishes or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (models.Snapshot, error) {
	r, err := m.lookup(id)
	if err != nil {
		return models.Snapshot{}, err
	}
	select {
	case <-r.done:
		return m.result(r)
	case <-ctx.Done():
		return r.wf.Status(), ctx.Err()
	}
}

// Cancel stops a running run. Its in-flight tasks are recorded as cancelled.
func (m *Manager) Cancel(id string) error {
	r, err := m.lookup(id)
	if err != nil {
		return err
	}
	r.cancel()
	return nil
}

// Forget drops a finished run.
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok && !r.finishedAt.IsZero() {
		delete(m.runs, id)
	}
}

// List returns the status of every tracked run.
func (m *Manager) List() []models.Snapshot {
	m.mu.Lock()
	m.evictLocked()
	runs := make([]*run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.Unlock()

	out := make([]models.Snapshot, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.wf.Status())
	}
	return out
}

// Shutdown stops accepting runs, cancels those in flight and waits for them
// to finish or ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, r := range m.runs {
		r.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) register(ctx context.Context, wf *Workflow) (*run, context.Context, error) {
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{wf: wf, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		cancel()
		return nil, nil, ErrManagerClosed
	}
	m.evictLocked()
	if prev, ok := m.runs[wf.ID()]; ok && prev.finishedAt.IsZero() {
		cancel()
		return nil, nil, fmt.Errorf("run %s: %w", wf.ID(), ErrAlreadyRunning)
	}
	m.runs[wf.ID()] = r
	m.wg.Add(1)
	return r, runCtx, nil
}

func (m *Manager) execute(ctx context.Context, r *run, deadline time.Duration) {
	defer m.wg.Done()
	defer r.cancel()

	_, err := r.wf.Run(ctx, deadline)

	m.mu.Lock()
	r.err = err
	r.finishedAt = m.now()
	m.mu.Unlock()
	close(r.done)
}

func (m *Manager) result(r *run) (models.Snapshot, error) {
	m.mu.Lock()
	err := r.err
	m.mu.Unlock()
	return r.wf.Status(), err
}

func (m *Manager) lookup(id string) (*run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrUnknownRun
	}
	return r, nil
}

func (m *Manager) evictLocked() {
	if m.retention <= 0 {
		return
	}
	cutoff := m.now().Add(-m.retention)
	for id, r := range m.runs {
		if !r.finishedAt.IsZero() && r.finishedAt.Before(cutoff) {
			delete(m.runs, id)
		}
	}
}
