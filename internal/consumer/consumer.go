// Package consumer implements the bounded push-consumer protocol the
// monitoring Agent pushes updates through, grounded on
// original_source/edera/consumer.py and edera/consumers/{basic,
// interprocess}.py.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/edera-run/workflowd/internal/routine"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// Consumer accepts pushed elements, raising xerrors.ConsumptionError if
// it cannot.
type Consumer interface {
	Push(element string) error
}

// Basic calls Handler synchronously, wrapping any error it returns as
// an xerrors.ConsumptionError. Grounded on edera/consumers/basic.py.
type Basic struct {
	Handler func(element string) error
}

func (b Basic) Push(element string) error {
	if err := b.Handler(element); err != nil {
		return &xerrors.ConsumptionError{Err: err}
	}
	return nil
}

// Bounded is a fixed-capacity buffer drained by a background Drain
// loop: Push enqueues without blocking, raising xerrors.ConsumptionError
// if the buffer is full, matching edera/consumers/interprocess.py's
// InterProcessConsumer (there backed by a multiprocessing.Queue; here a
// buffered channel gives the same non-blocking-push, drain-elsewhere
// shape within a single process).
type Bounded struct {
	ch      chan string
	Handler func(element string) error
	Backoff time.Duration // delay after an empty poll or a handler failure, default 1s
}

// NewBounded returns a Bounded consumer with the given capacity.
func NewBounded(capacity int, handler func(element string) error) *Bounded {
	return &Bounded{ch: make(chan string, capacity), Handler: handler, Backoff: time.Second}
}

func (b *Bounded) Push(element string) error {
	select {
	case b.ch <- element:
		return nil
	default:
		return &xerrors.ConsumptionError{Err: errFull}
	}
}

var errFull = fullError{}

type fullError struct{}

func (fullError) Error() string { return "buffer is full" }

// Drain pulls elements off the buffer and calls Handler on each,
// sleeping Backoff after an empty poll or a handler failure, until ctx
// is cancelled. Grounded on InterProcessConsumer.consume.
func (b *Bounded) Drain(ctx context.Context) error {
	backoff := b.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	for {
		if err := routine.Checkpoint(ctx); err != nil {
			return err
		}
		select {
		case element := <-b.ch:
			if err := b.Handler(element); err != nil {
				slog.Error("consumer handler failed", "error", err)
				if sleepErr := routine.Sleep(ctx, backoff); sleepErr != nil {
					return sleepErr
				}
			}
		default:
			if err := routine.Sleep(ctx, backoff); err != nil {
				return err
			}
		}
	}
}
