// Package routine provides the cooperative-cancellation primitives the
// rest of workflowd is built on, grounded on original_source/edera/
// routine.py. The Python original threads a generator-and-deferred-call
// protocol through every blocking call so an external auditor can run at
// each yield; Go already has a cancellation-aware runtime primitive for
// that (context.Context), so this package recasts Routine as a plain
// function type and keeps only the "audit happens at every yield point"
// contract: callers thread a context through every Step and call
// Checkpoint at the points the Python original would have yielded
// (inside loops, between phases of multi-step work).
package routine

import (
	"context"
	"time"
)

// Step is an interruptible unit of work: the Go equivalent of a
// Routine's core generator function, with ctx.Done() standing in for an
// externally-raised interruption flag. fix(args...) from the Python
// original has no Go counterpart here — ordinary closures partially
// apply a Step just as well.
type Step func(ctx context.Context) error

// Checkpoint is the Go equivalent of a bare `yield` in the original:
// call it at every point a long-running Step would cooperate with
// cancellation. Returns ctx.Err() (context.Canceled or
// context.DeadlineExceeded) if the context has already been cancelled.
func Checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Sleep waits for d, ticking every 10ms (matching the suspension-point
// granularity spec.md §5 describes) so cancellation is observed well
// before d elapses rather than only at the end of a single long timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return Checkpoint(ctx)
	}
	const tick = 10 * time.Millisecond
	deadline := time.Now().Add(d)
	timer := time.NewTimer(tick)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if remaining := time.Until(deadline); remaining <= 0 {
				return nil
			} else if remaining < tick {
				timer.Reset(remaining)
			} else {
				timer.Reset(tick)
			}
		}
	}
}
