package builder

import (
	"testing"

	"github.com/edera-run/workflowd/internal/requisite"
	"github.com/edera-run/workflowd/internal/task"
)

type stubTask struct {
	task.Base
	name string
	req  task.Requisite
}

func (s *stubTask) Name() string              { return s.name }
func (s *stubTask) Requisite() task.Requisite { return s.req }

func TestBuildIncludesRootAlone(t *testing.T) {
	root := &stubTask{name: "Idle"}
	w := Build(root)
	if len(w.Tasks()) != 1 {
		t.Fatalf("expected a single node, got %d", len(w.Tasks()))
	}
	if !w.Graph.Has(root) {
		t.Fatalf("root should be present in the built workflow")
	}
}

func TestBuildExpandsFollowChain(t *testing.T) {
	dep := &stubTask{name: "Dep"}
	root := &stubTask{name: "Root", req: requisite.Follow{Task: dep}}
	w := Build(root)

	if !w.Graph.Has(root) || !w.Graph.Has(dep) {
		t.Fatalf("both root and dep should be present")
	}
	parents := w.Graph.Parents(root)
	if len(parents) != 1 || parents[0].Name() != "Dep" {
		t.Fatalf("expected dep -> root edge, got parents %v", parents)
	}
}

func TestBuildSatisfyAllFansOutToMultipleDeps(t *testing.T) {
	d1 := &stubTask{name: "D1"}
	d2 := &stubTask{name: "D2"}
	root := &stubTask{name: "Root", req: requisite.FromTasks(d1, d2)}
	w := Build(root)

	if len(w.Tasks()) != 3 {
		t.Fatalf("expected 3 tasks (root + 2 deps), got %d", len(w.Tasks()))
	}
	parents := w.Graph.Parents(root)
	names := map[string]bool{}
	for _, p := range parents {
		names[p.Name()] = true
	}
	if !names["D1"] || !names["D2"] {
		t.Fatalf("expected both D1 and D2 as parents of root, got %v", parents)
	}
}

func TestBuildIsIdempotentForSharedDependency(t *testing.T) {
	shared := &stubTask{name: "Shared"}
	a := &stubTask{name: "A", req: requisite.Follow{Task: shared}}
	b := &stubTask{name: "B", req: requisite.Follow{Task: shared}}
	root := &stubTask{name: "Root", req: requisite.FromTasks(a, b)}
	w := Build(root)

	if len(w.Tasks()) != 4 {
		t.Fatalf("expected exactly 4 distinct tasks (root, a, b, shared), got %d: %v", len(w.Tasks()), w.Tasks())
	}
	children := w.Graph.Children(shared)
	if len(children) != 2 {
		t.Fatalf("shared dependency should fan out to both A and B, got %d children", len(children))
	}
}

func TestBuildExpandsTransitiveChain(t *testing.T) {
	c := &stubTask{name: "C"}
	b := &stubTask{name: "B", req: requisite.Follow{Task: c}}
	a := &stubTask{name: "A", req: requisite.Follow{Task: b}}
	w := Build(a)

	if len(w.Tasks()) != 3 {
		t.Fatalf("expected 3 tasks in the transitive chain, got %d", len(w.Tasks()))
	}
	if parents := w.Graph.Parents(a); len(parents) != 1 || parents[0].Name() != "B" {
		t.Fatalf("expected B -> A, got %v", parents)
	}
	if parents := w.Graph.Parents(b); len(parents) != 1 || parents[0].Name() != "C" {
		t.Fatalf("expected C -> B, got %v", parents)
	}
}
