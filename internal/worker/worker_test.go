package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edera-run/workflowd/internal/xerrors"
)

func TestThreadFinishesCleanlyOnNilError(t *testing.T) {
	w := NewThread("ok", func(ctx context.Context) error { return nil })
	w.Start()
	w.Join(time.Second)
	if w.Failed() || w.Stopped() {
		t.Fatalf("a clean finish should be neither Failed nor Stopped")
	}
	if w.Alive() {
		t.Fatalf("worker should not be Alive after it finished")
	}
}

func TestThreadMarksExcusableErrorStopped(t *testing.T) {
	w := NewThread("stop", func(ctx context.Context) error { return xerrors.NewExcusable("lock lost") })
	w.Start()
	w.Join(time.Second)
	if !w.Stopped() || w.Failed() {
		t.Fatalf("an excusable error should mark the worker Stopped, not Failed")
	}
}

func TestThreadMarksOtherErrorFailed(t *testing.T) {
	w := NewThread("fail", func(ctx context.Context) error { return errors.New("boom") })
	w.Start()
	w.Join(time.Second)
	if !w.Failed() || w.Stopped() {
		t.Fatalf("a non-excusable error should mark the worker Failed, not Stopped")
	}
}

func TestThreadContextCanceledIsSilentTermination(t *testing.T) {
	w := NewThread("cancelled", func(ctx context.Context) error { return context.Canceled })
	w.Start()
	w.Join(time.Second)
	if w.Failed() || w.Stopped() {
		t.Fatalf("context.Canceled should terminate silently, neither Failed nor Stopped")
	}
}

func TestThreadKillStopsBeingAlive(t *testing.T) {
	started := make(chan struct{})
	w := NewThread("blocked", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	w.Start()
	<-started
	if !w.Alive() {
		t.Fatalf("worker should be Alive while its action blocks")
	}
	w.Kill()
	if w.Alive() {
		t.Fatalf("worker should not be Alive immediately after Kill")
	}
	w.Join(time.Second)
}

func TestThreadStartTwicePanics(t *testing.T) {
	w := NewThread("once", func(ctx context.Context) error { return nil })
	w.Start()
	w.Join(time.Second)
	defer func() {
		if recover() == nil {
			t.Fatalf("starting an already-started Thread should panic")
		}
	}()
	w.Start()
}
