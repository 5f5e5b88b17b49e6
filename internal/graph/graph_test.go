package graph

import "testing"

func TestGraphLinkAndTrace(t *testing.T) {
	g := New[string]()
	g.Link("a", "b")
	g.Link("b", "c")
	g.Link("a", "d")

	if !g.Has("a") || !g.Has("c") {
		t.Fatalf("expected a and c to be present")
	}
	desc := g.Trace("a", "D")
	want := map[string]bool{"a": true, "b": true, "c": true, "d": true}
	if len(desc) != len(want) {
		t.Fatalf("Trace(a, D) = %v, want all of %v", desc, want)
	}
	for _, item := range desc {
		if !want[item] {
			t.Fatalf("unexpected item %q in descendants", item)
		}
	}
}

func TestGraphRemove(t *testing.T) {
	g := New[string]()
	g.Link("a", "b")
	g.Remove("a")
	if g.Has("a") {
		t.Fatalf("a should have been removed")
	}
	if parents := g.Parents("b"); len(parents) != 0 {
		t.Fatalf("b should have no parents after removing a, got %v", parents)
	}
}

func TestDisjointSetUnion(t *testing.T) {
	d := NewDisjointSet[string]()
	d.Union("x", "y")
	d.Union("y", "z")
	if d.Find("x") != d.Find("z") {
		t.Fatalf("x and z should be in the same set")
	}
	groups := d.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected a single group, got %d", len(groups))
	}
}

func TestHeapStability(t *testing.T) {
	h := NewHeap[string]()
	h.Push(1, "first")
	h.Push(1, "second")
	h.Push(2, "third")

	v, _, _ := h.Pop()
	if v != "third" {
		t.Fatalf("expected highest priority first, got %q", v)
	}
	v, _, _ = h.Pop()
	if v != "first" {
		t.Fatalf("expected FIFO tie-break, got %q", v)
	}
}

func TestQueuePickAcceptDiscard(t *testing.T) {
	g := New[string]()
	g.Link("a", "b")
	g.Link("a", "c")
	g.Link("c", "d")

	rank := func(string) float64 { return 0 }
	q := NewQueue(g, rank, true)

	item, ok := q.Pick()
	if !ok || item != "a" {
		t.Fatalf("expected a to be ready first, got %q ok=%v", item, ok)
	}
	q.Discard("a")
	if !q.Done() {
		t.Fatalf("expected all descendants of a to be settled by discard")
	}
}
