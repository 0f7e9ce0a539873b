package cvexport

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Render limit sizing constants.
const (
	// MinRenderLimit ensures at least one render can run.
	MinRenderLimit = 1

	// MaxAutoRenderLimit caps auto-sized limits (~200MB of Chrome each).
	MaxAutoRenderLimit = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// Limiter bounds how many Render Sessions run at once. A nil *Limiter
// imposes no bound.
type Limiter struct {
	size int64
	sem  *semaphore.Weighted
}

// NewLimiter returns a limiter admitting n concurrent renders, or nil
// (unbounded) when n <= 0.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		return nil
	}
	return &Limiter{size: int64(n), sem: semaphore.NewWeighted(int64(n))}
}

// Acquire blocks until a slot is free or ctx ends.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.sem.Acquire(ctx, 1)
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	if l == nil {
		return
	}
	l.sem.Release(1)
}

// Size returns the limit, or 0 when unbounded.
func (l *Limiter) Size() int {
	if l == nil {
		return 0
	}
	return int(l.size)
}

// ResolveRenderLimit turns a configured value into a concrete limit.
// Positive values are used as is, zero keeps renders unbounded, and
// negative values size the limit from GOMAXPROCS (adjusted by automaxprocs
// in containers).
func ResolveRenderLimit(configured int) int {
	if configured >= 0 {
		return configured
	}

	n := runtime.GOMAXPROCS(0) / cpuDivisor
	if n < MinRenderLimit {
		return MinRenderLimit
	}
	if n > MaxAutoRenderLimit {
		return MaxAutoRenderLimit
	}
	return n
}
