package invoker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edera-run/workflowd/internal/routine"
	"github.com/edera-run/workflowd/internal/worker"
	"github.com/edera-run/workflowd/internal/xerrors"
)

func TestMasterSlaveSucceedsWhenAllSlavesFinish(t *testing.T) {
	m := MasterSlave{
		Actions: map[string]routine.Step{
			"a": func(ctx context.Context) error { return nil },
			"b": func(ctx context.Context) error { return nil },
		},
		NewWorker: worker.NewThread,
	}
	if err := m.Invoke(context.Background()); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
}

func TestMasterSlaveReportsFailedSlaves(t *testing.T) {
	m := MasterSlave{
		Actions: map[string]routine.Step{
			"good": func(ctx context.Context) error { return nil },
			"bad":  func(ctx context.Context) error { return errors.New("boom") },
		},
		NewWorker: worker.NewThread,
	}
	err := m.Invoke(context.Background())
	var fatal *xerrors.MasterSlaveInvocationError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected a MasterSlaveInvocationError, got %v", err)
	}
	if len(fatal.Failed) != 1 || fatal.Failed[0] != "bad" {
		t.Fatalf("expected only 'bad' reported failed, got %v", fatal.Failed)
	}
}

func TestMasterSlaveReportsStoppedSlavesAsExcusable(t *testing.T) {
	m := MasterSlave{
		Actions: map[string]routine.Step{
			"stopper": func(ctx context.Context) error { return xerrors.NewExcusable("lock lost") },
		},
		NewWorker: worker.NewThread,
	}
	err := m.Invoke(context.Background())
	if err == nil || !xerrors.IsExcusable(err) {
		t.Fatalf("expected an excusable aggregate, got %v", err)
	}
}

func TestReplicateNamesWorkersSequentially(t *testing.T) {
	calls := 0
	actions := Replicate(func(ctx context.Context) error { calls++; return nil }, 3, "executor-")
	if len(actions) != 3 {
		t.Fatalf("expected 3 replicated actions, got %d", len(actions))
	}
	for _, name := range []string{"executor-1", "executor-2", "executor-3"} {
		if _, ok := actions[name]; !ok {
			t.Fatalf("expected action named %q", name)
		}
	}
}

func TestPersistentRetriesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	p := Persistent{
		Delay: time.Millisecond,
		Action: func(ctx context.Context) error {
			attempts++
			if attempts >= 3 {
				cancel()
			}
			return nil
		},
	}
	err := p.Invoke(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts < 3 {
		t.Fatalf("expected at least 3 attempts before cancellation, got %d", attempts)
	}
}

func TestPersistentSwallowsExcusableErrorsAndContinues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	p := Persistent{
		Delay: time.Millisecond,
		Action: func(ctx context.Context) error {
			attempts++
			if attempts >= 2 {
				cancel()
				return nil
			}
			return xerrors.NewExcusable("transient")
		},
	}
	if err := p.Invoke(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the loop to continue past the excusable error and stop on cancel, got %v", err)
	}
}
