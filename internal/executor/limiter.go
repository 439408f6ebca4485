package executor

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter is a process-wide ceiling on concurrently running tasks, shared by
// every workflow run. A nil *Limiter imposes no limit.
type Limiter struct {
	sem  *semaphore.Weighted
	size int
}

// NewLimiter returns a limiter admitting n tasks at once, or nil when n <= 0.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		return nil
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func must be called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { l.sem.Release(1) }, nil
}

// Size returns the ceiling, 0 for an unlimited limiter.
func (l *Limiter) Size() int {
	if l == nil {
		return 0
	}
	return l.size
}
