package linearizer

import (
	"errors"
	"testing"

	"github.com/edera-run/workflowd/internal/graph"
	"github.com/edera-run/workflowd/internal/xerrors"
)

func TestDFSOrdersParentsBeforeChildren(t *testing.T) {
	g := graph.New[string]()
	g.Link("a", "b")
	g.Link("b", "c")
	g.Link("a", "d")

	order, err := DFS[string]{}.Linearize(g)
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	pos := make(map[string]int, len(order))
	for i, item := range order {
		pos[item] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] || pos["a"] > pos["d"] {
		t.Fatalf("expected parents before children, got order %v", order)
	}
}

func TestDFSDetectsCycle(t *testing.T) {
	g := graph.New[string]()
	g.Link("a", "b")
	g.Link("b", "a")

	_, err := DFS[string]{}.Linearize(g)
	if err == nil {
		t.Fatalf("expected a circular dependency error")
	}
	var cycleErr *xerrors.CircularDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *xerrors.CircularDependencyError, got %T: %v", err, err)
	}
}

type namedString string

func (n namedString) Name() string { return string(n) }

func TestLinearizeNamedResolvesLiveValues(t *testing.T) {
	ng := graph.NewNamed[namedString]()
	ng.Link("a", "b")

	order, err := LinearizeNamed(ng)
	if err != nil {
		t.Fatalf("LinearizeNamed: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected [a b], got %v", order)
	}
}
