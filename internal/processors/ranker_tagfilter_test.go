package processors

import (
	"testing"

	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
)

type namedTask struct {
	task.Base
	name string
}

func (n *namedTask) Name() string { return n.name }

func TestTaskRankerIsTopological(t *testing.T) {
	w := workflow.New()
	a := &namedTask{name: "A"}
	b := &namedTask{name: "B"}
	c := &namedTask{name: "C"}
	w.Graph.Link(a, b)
	w.Graph.Link(b, c)

	if err := (TaskRanker{}).Process(w); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !(w.Rank(a) <= w.Rank(b) && w.Rank(b) <= w.Rank(c)) {
		t.Fatalf("rank should be non-decreasing along edges: a=%d b=%d c=%d", w.Rank(a), w.Rank(b), w.Rank(c))
	}
}

func TestTagFilterKeepsForeignAncestorOfMatch(t *testing.T) {
	w := workflow.New()
	a := &namedTask{name: "A"}
	b := &namedTask{name: "B"}
	w.Graph.Link(a, b)
	w.SetTag(a, "other")
	w.SetTag(b, "focus")

	if err := (TagFilter{Tag: "focus"}).Process(w); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !w.Graph.Has(a) {
		t.Fatalf("task a (tag=other) has a matching descendant b and should remain")
	}
	if !w.Graph.Has(b) {
		t.Fatalf("task b (tag=focus) should remain")
	}
}

func TestTagFilterDropsUnmatchedLeaves(t *testing.T) {
	w := workflow.New()
	a := &namedTask{name: "A"}
	b := &namedTask{name: "B"}
	w.Graph.Link(a, b)
	w.SetTag(a, "other")
	w.SetTag(b, "other")

	if err := (TagFilter{Tag: "focus"}).Process(w); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if w.Graph.Has(a) || w.Graph.Has(b) {
		t.Fatalf("neither task matches the tag and neither has a matching descendant; both should be removed")
	}
}
