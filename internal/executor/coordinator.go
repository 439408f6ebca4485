package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/harrison/researchflow/internal/models"
)

// DefaultRetryBackoff is used when retries are enabled without a backoff.
const DefaultRetryBackoff = 250 * time.Millisecond

// RetryPolicy controls coordinator-level retries of failed tasks. Tasks never
// retry themselves. Only execution failures are retried; timeouts, panics and
// cancellations are final.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts per task; <= 1 disables retries
	Backoff     time.Duration // Base of the exponential backoff between attempts
}

func (p RetryPolicy) enabled() bool {
	return p.MaxAttempts > 1
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.Backoff
	if base <= 0 {
		base = DefaultRetryBackoff
	}
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), retry.NewExponential(base))
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	MaxConcurrency int         // Per-run worker cap; <= 0 means one worker per task
	Limiter        *Limiter    // Process-wide ceiling shared across runs (optional)
	Retry          RetryPolicy // Retry policy for failed tasks
}

// OutcomeSink receives each outcome as it is recorded. It is only ever called
// from the coordinator's collector goroutine, in recording order.
type OutcomeSink func(models.TaskOutcome)

// Coordinator runs a plan's tasks concurrently under a bounded worker pool.
// One task's failure never cancels or blocks its siblings.
type Coordinator struct {
	executor TaskExecutor
	cfg      CoordinatorConfig
}

// NewCoordinator creates a Coordinator around a single-task executor.
func NewCoordinator(executor TaskExecutor, cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{executor: executor, cfg: cfg}
}

// WorkerCount returns the pool size used for n tasks.
func (c *Coordinator) WorkerCount(n int) int {
	w := c.cfg.MaxConcurrency
	if w <= 0 || w > n {
		w = n
	}
	return w
}

// ExecuteAll runs tasks and returns exactly one outcome per task id.
//
// It returns once every task has reported or ctx is done, whichever comes
// first. Tasks still running when ctx ends are recorded as timed out (deadline)
// or failed (cancellation); their workers are cancelled and abandoned and
// anything they report afterwards is discarded.
func (c *Coordinator) ExecuteAll(ctx context.Context, tasks []models.TaskSpec, req models.WorkflowRequest, sink OutcomeSink) map[string]models.TaskOutcome {
	ledger := NewOutcomeLedger(tasks)
	if len(tasks) == 0 {
		ledger.Seal()
		return ledger.Snapshot()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan models.TaskSpec, len(tasks))
	for _, spec := range tasks {
		jobs <- spec
	}
	close(jobs)

	// Buffered to the task count so a worker can always hand off its outcome,
	// even after the collector has stopped listening.
	completions := make(chan models.TaskOutcome, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < c.WorkerCount(len(tasks)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for spec := range jobs {
				if runCtx.Err() != nil {
					return
				}
				completions <- c.runTask(runCtx, spec, req)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(completions)
	}()

	c.collect(ctx, ledger, completions, sink)

	for _, spec := range ledger.PendingTasks() {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		c.record(ledger, interruptedOutcome(spec, cause, 0, 0), sink)
	}
	ledger.Seal()

	return ledger.Snapshot()
}

// collect is the single writer into the ledger.
func (c *Coordinator) collect(ctx context.Context, ledger *OutcomeLedger, completions <-chan models.TaskOutcome, sink OutcomeSink) {
	for ledger.Pending() > 0 {
		select {
		case outcome, ok := <-completions:
			if !ok {
				return
			}
			if ctx.Err() != nil && outcome.CompletedAt.After(interruptedAt(ctx)) {
				continue
			}
			c.record(ledger, outcome, sink)
		case <-ctx.Done():
			// Drain what is buffered, keeping only outcomes completed by the
			// cutoff; anything later belongs to an abandoned worker.
			cutoff := interruptedAt(ctx)
			for {
				select {
				case outcome, ok := <-completions:
					if !ok {
						return
					}
					if outcome.CompletedAt.After(cutoff) {
						continue
					}
					c.record(ledger, outcome, sink)
				default:
					return
				}
			}
		}
	}
}

// interruptedAt is the context's deadline when it has passed, otherwise now.
func interruptedAt(ctx context.Context) time.Time {
	now := time.Now()
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(now) {
		return deadline
	}
	return now
}

func (c *Coordinator) record(ledger *OutcomeLedger, outcome models.TaskOutcome, sink OutcomeSink) {
	if err := ledger.Record(outcome); err != nil {
		return
	}
	if sink != nil {
		sink(outcome)
	}
}

// runTask runs one task, applying the global limiter and the retry policy.
// The limiter slot is released between attempts.
func (c *Coordinator) runTask(ctx context.Context, spec models.TaskSpec, req models.WorkflowRequest) models.TaskOutcome {
	start := time.Now()

	attempt := func(ctx context.Context) models.TaskOutcome {
		release, err := c.cfg.Limiter.Acquire(ctx)
		if err != nil {
			return interruptedOutcome(spec, err, 0, time.Since(start))
		}
		defer release()
		return c.executor.Execute(ctx, spec, req)
	}

	if !c.cfg.Retry.enabled() {
		return attempt(ctx)
	}

	var outcome models.TaskOutcome
	attempts := 0
	err := retry.Do(ctx, c.cfg.Retry.backoff(), func(ctx context.Context) error {
		attempts++
		outcome = attempt(ctx)
		if retryable(outcome) {
			return retry.RetryableError(errors.New(outcome.Reason()))
		}
		return nil
	})
	if attempts == 0 {
		return interruptedOutcome(spec, err, 0, time.Since(start))
	}
	outcome.Attempts = attempts
	return outcome
}

func retryable(o models.TaskOutcome) bool {
	return o.Status == models.StatusFailed && o.Error != nil && o.Error.Kind == models.ErrorKindExecution
}
