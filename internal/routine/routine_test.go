package routine

import (
	"context"
	"testing"
	"time"
)

func TestCheckpointPassesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	if err := Checkpoint(ctx); err != nil {
		t.Fatalf("Checkpoint on a live context should return nil, got %v", err)
	}
	cancel()
	if err := Checkpoint(ctx); err != context.Canceled {
		t.Fatalf("Checkpoint after cancel should return context.Canceled, got %v", err)
	}
}

func TestSleepReturnsAfterDuration(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("Sleep returned too early: %v", elapsed)
	}
}

func TestSleepObservesCancellationEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Sleep(ctx, time.Second) }()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("Sleep did not observe cancellation promptly")
	}
}

func TestSleepZeroDurationChecksContext(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("Sleep(0) on a live context should return nil, got %v", err)
	}
}
