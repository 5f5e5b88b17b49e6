package monitoring

import (
	"testing"
	"time"
)

func TestTaskStatusUpdateLifecycle(t *testing.T) {
	core := NewCore()
	payloads := map[string]*TaskPayload{}
	alias := Alias("T")

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	TaskStatusUpdate{Task: "T", Status: StatusRunning, Timestamp: t0}.Apply(core, payloads, "agent1")
	state := core.States[alias]
	if state.Runs["agent1"] != t0 {
		t.Fatalf("running should record Runs[agent1]")
	}

	t1 := t0.Add(time.Minute)
	TaskStatusUpdate{Task: "T", Status: StatusCompleted, Timestamp: t1}.Apply(core, payloads, "agent1")
	state = core.States[alias]
	if !state.Completed {
		t.Fatalf("completed status should set Completed=true")
	}
	if _, stillRunning := state.Runs["agent1"]; stillRunning {
		t.Fatalf("completed status should clear Runs[agent1]")
	}
	if state.Span == nil || state.Span[0] != t0 || state.Span[1] != t1 {
		t.Fatalf("expected span (%v,%v), got %v", t0, t1, state.Span)
	}
}

func TestTaskStatusUpdateSpanIsFirstObservedOnly(t *testing.T) {
	core := NewCore()
	payloads := map[string]*TaskPayload{}

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	TaskStatusUpdate{Task: "T", Status: StatusRunning, Timestamp: t0}.Apply(core, payloads, "a")
	TaskStatusUpdate{Task: "T", Status: StatusCompleted, Timestamp: t0.Add(time.Minute)}.Apply(core, payloads, "a")
	firstSpan := core.States[Alias("T")].Span

	// A second run/complete cycle must not overwrite the first observed span.
	t2 := t0.Add(time.Hour)
	TaskStatusUpdate{Task: "T", Status: StatusRunning, Timestamp: t2}.Apply(core, payloads, "a")
	TaskStatusUpdate{Task: "T", Status: StatusCompleted, Timestamp: t2.Add(time.Minute)}.Apply(core, payloads, "a")
	secondSpan := core.States[Alias("T")].Span

	if *secondSpan != *firstSpan {
		t.Fatalf("span should remain the first observed one; got %v then %v", firstSpan, secondSpan)
	}
}

func TestTaskStatusUpdateFailedRecordsFailure(t *testing.T) {
	core := NewCore()
	payloads := map[string]*TaskPayload{}
	ts := time.Now().UTC()
	TaskStatusUpdate{Task: "T", Status: StatusFailed, Timestamp: ts}.Apply(core, payloads, "a")
	state := core.States[Alias("T")]
	if state.Failures["a"] != ts {
		t.Fatalf("failed status should record Failures[a]")
	}
}

func TestTaskLogUpdateCapsPerAgent(t *testing.T) {
	core := NewCore()
	payloads := map[string]*TaskPayload{}
	for i := 0; i < LogLimit+5; i++ {
		TaskLogUpdate{Task: "T", Message: "m", Timestamp: time.Now()}.Apply(core, payloads, "a")
	}
	logs := payloads[Alias("T")].Logs["a"]
	if len(logs) != LogLimit {
		t.Fatalf("expected log list capped at %d, got %d", LogLimit, len(logs))
	}
}

func TestWorkflowUpdateMarksStaleWithoutActiveDescendant(t *testing.T) {
	core := NewCore()
	payloads := map[string]*TaskPayload{}

	WorkflowUpdate{
		Dependencies: map[string][]string{"Leaf": nil},
		Phonies:      map[string]bool{"Leaf": false},
	}.Apply(core, payloads, "agent1")

	// agent1 stops reporting Leaf entirely: no active agents, no
	// descendants -> stale (spec.md §9 Open Question 3).
	WorkflowUpdate{
		Dependencies: map[string][]string{},
	}.Apply(core, payloads, "agent1")

	state := core.States[Alias("Leaf")]
	if !state.Stale {
		t.Fatalf("a task with no active agents and no active descendants should be marked stale")
	}
	if state.Completed {
		t.Fatalf("a stale task should not be marked completed")
	}
}

func TestWorkflowUpdateMarksCompletedWithActiveDescendant(t *testing.T) {
	core := NewCore()
	payloads := map[string]*TaskPayload{}

	// Parent depends on nothing; Child depends on Parent and is still
	// actively reported.
	WorkflowUpdate{
		Dependencies: map[string][]string{"Parent": nil, "Child": {"Parent"}},
	}.Apply(core, payloads, "agent1")

	// agent1 stops reporting Parent but keeps reporting Child.
	WorkflowUpdate{
		Dependencies: map[string][]string{"Child": {"Parent"}},
	}.Apply(core, payloads, "agent1")

	state := core.States[Alias("Parent")]
	if !state.Completed || state.Stale {
		t.Fatalf("a task with an active descendant should be completed, not stale; got %+v", state)
	}
}

func TestAugmentDerivesPhonyCompletionBottomUp(t *testing.T) {
	core := NewCore()
	payloads := map[string]*TaskPayload{}
	leafAlias := Alias("Leaf")
	phonyAlias := Alias("Phony")

	core.States[leafAlias] = TaskState{Name: "Leaf", Phony: false, Completed: true}
	core.States[phonyAlias] = TaskState{Name: "Phony", Phony: true}
	payloads[phonyAlias] = &TaskPayload{Dependencies: []string{leafAlias}}

	Augment(core, payloads, time.Now())
	if !core.States[phonyAlias].Completed {
		t.Fatalf("a phony task whose only dependency is completed should be marked completed")
	}

	core.States[leafAlias] = TaskState{Name: "Leaf", Phony: false, Completed: false}
	Augment(core, payloads, time.Now())
	if core.States[phonyAlias].Completed {
		t.Fatalf("a phony task with a pending dependency should not be completed")
	}
}

func TestAliasIsStableAndTenHexChars(t *testing.T) {
	a1 := Alias("SomeTask(x=1)")
	a2 := Alias("SomeTask(x=1)")
	if a1 != a2 {
		t.Fatalf("Alias should be deterministic for the same name")
	}
	if len(a1) != 10 {
		t.Fatalf("Alias should be 10 hex characters, got %d: %q", len(a1), a1)
	}
}
