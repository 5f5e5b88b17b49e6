package processors

import (
	"errors"
	"testing"

	"github.com/edera-run/workflowd/internal/condition"
	"github.com/edera-run/workflowd/internal/storage"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
	"github.com/edera-run/workflowd/internal/xerrors"
)

type mutableTask struct {
	task.Base
	name   string
	req    task.Requisite
	target condition.Condition
}

func (m *mutableTask) Name() string              { return m.name }
func (m *mutableTask) Requisite() task.Requisite { return m.req }
func (m *mutableTask) Target() condition.Condition { return m.target }

type fakeCondition struct {
	condition.Base
	name string
	val  bool
}

func (f *fakeCondition) Name() string            { return f.name }
func (f *fakeCondition) Check() (bool, error)     { return f.val, nil }

func TestTaskFreezerSnapshotsNameRequisiteTarget(t *testing.T) {
	w := workflow.New()
	target := &fakeCondition{name: "T", val: false}
	mt := &mutableTask{name: "A", target: target}
	w.Graph.Add(mt)

	if err := (TaskFreezer{}).Process(w); err != nil {
		t.Fatalf("Process: %v", err)
	}

	// Mutate the original task's properties after freezing; the frozen
	// copy in the workflow must not observe the change.
	mt.target = &fakeCondition{name: "T2", val: true}

	frozen, ok := w.Graph.Get("A")
	if !ok {
		t.Fatalf("frozen task A should still be present")
	}
	if frozen.Target().Name() != "T" {
		t.Fatalf("frozen target should be immutable, got %q", frozen.Target().Name())
	}
}

type erroringStorage struct{ storage.Storage }

func (erroringStorage) Get(key string, since, limit *int) ([]storage.Record, error) {
	return nil, &xerrors.StorageOperationError{Op: "get", Err: errors.New("boom")}
}

func TestTargetCacherShortCircuitsOnCacheHit(t *testing.T) {
	w := workflow.New()
	calls := 0
	target := &countingCondition{name: "T", fn: func() (bool, error) { calls++; return false, nil }}
	mt := &mutableTask{name: "A", target: target}
	w.Graph.Add(mt)

	cache := storage.NewMemory()
	if err := (TargetCacher{Cache: cache}).Process(w); err != nil {
		t.Fatalf("Process: %v", err)
	}
	wrapped, _ := w.Graph.Get("A")

	v, err := wrapped.Target().Check()
	if err != nil || v {
		t.Fatalf("first check (cache miss, real target false) = (%v,%v)", v, err)
	}
	if calls != 1 {
		t.Fatalf("expected one real check on cache miss, got %d", calls)
	}

	// Now make the real target true and flip it false again afterward:
	// once cached, the cacher should never re-invoke the real check.
	target.fn = func() (bool, error) { calls++; return true, nil }
	v, err = wrapped.Target().Check()
	if err != nil || !v {
		t.Fatalf("second check should report true once real target becomes true")
	}
	target.fn = func() (bool, error) { calls++; return false, nil }
	v, err = wrapped.Target().Check()
	if err != nil || !v {
		t.Fatalf("third check should short-circuit to true from the cache, got (%v,%v)", v, err)
	}
	if calls != 2 {
		t.Fatalf("expected no further real checks once cached, got %d total calls", calls)
	}
}

type countingCondition struct {
	condition.Base
	name string
	fn   func() (bool, error)
}

func (c *countingCondition) Name() string        { return c.name }
func (c *countingCondition) Check() (bool, error) { return c.fn() }

func TestTargetCacherStorageErrorDoesNotInflateFalsePositive(t *testing.T) {
	w := workflow.New()
	target := &fakeCondition{name: "T", val: false}
	mt := &mutableTask{name: "A", target: target}
	w.Graph.Add(mt)

	if err := (TargetCacher{Cache: erroringStorage{}}).Process(w); err != nil {
		t.Fatalf("Process: %v", err)
	}
	wrapped, _ := w.Graph.Get("A")
	v, err := wrapped.Target().Check()
	if err != nil || v {
		t.Fatalf("a storage error on Get should fall through to the real check, got (%v,%v)", v, err)
	}
}
