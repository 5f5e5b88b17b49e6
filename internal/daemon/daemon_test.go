package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edera-run/workflowd/internal/condition"
	"github.com/edera-run/workflowd/internal/locker"
	"github.com/edera-run/workflowd/internal/storage"
	"github.com/edera-run/workflowd/internal/task"
)

// flagTarget is a condition that becomes true once a counter reaches a
// threshold, letting a test task "complete" after N executions.
type flagTarget struct {
	condition.Base
	name string
	done *atomic.Bool
}

func (t *flagTarget) Name() string            { return t.name }
func (t *flagTarget) Check() (bool, error)    { return t.done.Load(), nil }

type countingTask struct {
	task.Base
	name  string
	count *atomic.Int64
	done  *atomic.Bool
}

func (t *countingTask) Name() string { return t.name }
func (t *countingTask) Phony() bool  { return false }
func (t *countingTask) Execute() error {
	t.count.Add(1)
	t.done.Store(true)
	return nil
}
func (t *countingTask) Target() condition.Condition {
	return &flagTarget{name: t.name + "#target", done: t.done}
}

// countingModule seeds a single countingTask exactly once (nil
// thereafter), so its main-style persistent branch executes it once and
// then idles - enough to exercise the whole build->box->execute chain
// without looping forever in a unit test.
type countingModule struct {
	name      string
	schedule  map[string]Schedule
	count     atomic.Int64
	seeded    atomic.Bool
	execution atomic.Bool
}

func (m *countingModule) Name() string                    { return m.name }
func (m *countingModule) Scheduling() map[string]Schedule { return m.schedule }
func (m *countingModule) Seed(time.Time) (task.Task, error) {
	if m.seeded.Swap(true) {
		return nil, nil
	}
	return &countingTask{name: m.name + "/task", count: &m.count, done: &m.execution}, nil
}

// cronSeededModule is a countingModule additionally gated by a cron
// expression, exercising the CronSeeded branch of buildAction.
type cronSeededModule struct {
	countingModule
	cronSpec string
}

func (m *cronSeededModule) CronSpec() string { return m.cronSpec }

func fastSchedule() Schedule {
	return Schedule{BuildingDelay: time.Millisecond, ExecutionDelay: time.Millisecond, Executors: 1}
}

func TestDaemonRunsMainModuleToCompletion(t *testing.T) {
	main := &countingModule{name: "main", schedule: map[string]Schedule{"": fastSchedule()}}
	d := &Daemon{
		Main:                main,
		Cache:               storage.NewMemory(),
		Monitor:             storage.NewMemory(),
		Locker:              locker.NewProcess(),
		InterruptionTimeout: 200 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := d.Run(ctx)
	if err != nil && err != context.DeadlineExceeded && err != context.Canceled {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
	if main.count.Load() != 1 {
		t.Fatalf("expected countingTask to execute exactly once, got %d", main.count.Load())
	}
}

func TestDaemonPreludeGatesMain(t *testing.T) {
	prelude := &countingModule{name: "prelude", schedule: map[string]Schedule{"": fastSchedule()}}
	main := &countingModule{name: "main", schedule: map[string]Schedule{"": fastSchedule()}}
	d := &Daemon{
		Prelude:             prelude,
		Main:                main,
		Cache:               storage.NewMemory(),
		Monitor:             storage.NewMemory(),
		Locker:              locker.NewProcess(),
		InterruptionTimeout: 200 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = d.Run(ctx)

	if prelude.count.Load() != 1 {
		t.Fatalf("expected prelude to execute exactly once, got %d", prelude.count.Load())
	}
	if main.count.Load() != 1 {
		t.Fatalf("expected main to execute exactly once, got %d", main.count.Load())
	}
}

func TestDaemonHoldsBackCronSeededModuleUntilDue(t *testing.T) {
	main := &cronSeededModule{
		countingModule: countingModule{name: "main", schedule: map[string]Schedule{"": fastSchedule()}},
		cronSpec:       "0 0 1 1 *",
	}
	d := &Daemon{
		Main:                main,
		Cache:               storage.NewMemory(),
		Monitor:             storage.NewMemory(),
		Locker:              locker.NewProcess(),
		InterruptionTimeout: 200 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_ = d.Run(ctx)

	if main.count.Load() != 0 {
		t.Fatalf("expected cron-gated module to stay unseeded and unexecuted, got %d executions", main.count.Load())
	}
}

func TestCronGateDefersUntilDue(t *testing.T) {
	gate, err := newCronGate("@every 1h")
	if err != nil {
		t.Fatalf("newCronGate: %v", err)
	}
	if gate.ready(time.Now()) {
		t.Fatalf("gate should not be ready immediately after construction")
	}
	if !gate.ready(gate.next.Add(time.Millisecond)) {
		t.Fatalf("gate should be ready once its next fire time has passed")
	}
}
