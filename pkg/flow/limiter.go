package flow

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many calls run at once.
type Limiter struct {
	sem *semaphore.Weighted
}

func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Run waits for a free slot, then calls fn. The slot is released even if fn panics.
func (l *Limiter) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	return fn(ctx)
}
