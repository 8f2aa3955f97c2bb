package pipeline

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Governor bounds the number of batch-level provider calls in flight.
// One Governor is shared by every batch of a run.
type Governor struct {
	sem *semaphore.Weighted
}

// NewGovernor allows up to n concurrent calls.
func NewGovernor(n int) *Governor {
	if n <= 0 {
		n = 1
	}
	return &Governor{sem: semaphore.NewWeighted(int64(n))}
}

// Do runs fn while holding one slot.
func (g *Governor) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	return fn(ctx)
}
