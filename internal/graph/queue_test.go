package graph

import "testing"

func TestQueuePicksInRankOrderAndUnlocksChildren(t *testing.T) {
	g := New[string]()
	g.Link("a", "b")
	g.Link("b", "c")

	rank := map[string]float64{"a": 0, "b": 1, "c": 2}
	q := NewQueue(g, func(item string) float64 { return rank[item] }, true)

	item, ok := q.Pick()
	if !ok || item != "a" {
		t.Fatalf("Pick() = (%q,%v), want (a,true): only a has no parents", item, ok)
	}
	if q.Len() != 0 {
		t.Fatalf("b should not be ready until a is accepted")
	}
	q.Accept(item)

	item, ok = q.Pick()
	if !ok || item != "b" {
		t.Fatalf("Pick() after accepting a = (%q,%v), want (b,true)", item, ok)
	}
	q.Accept(item)

	item, ok = q.Pick()
	if !ok || item != "c" {
		t.Fatalf("Pick() after accepting b = (%q,%v), want (c,true)", item, ok)
	}
	q.Accept(item)

	if !q.Done() {
		t.Fatalf("queue should be Done once every item is settled")
	}
}

func TestQueueDiscardRemovesDescendantsTransitively(t *testing.T) {
	g := New[string]()
	g.Link("a", "b")
	g.Link("b", "c")
	g.Add("d")

	q := NewQueue(g, func(string) float64 { return 0 }, true)

	item, _ := q.Pick()
	if item != "a" && item != "d" {
		t.Fatalf("unexpected first pick %q", item)
	}
	q.Discard("a")
	if q.Len() != 1 {
		t.Fatalf("expected only d to remain ready after discarding a (b,c transitively discarded), got %d ready", q.Len())
	}
	item, ok := q.Pick()
	if !ok || item != "d" {
		t.Fatalf("Pick() = (%q,%v), want (d,true)", item, ok)
	}
	q.Accept(item)
	if !q.Done() {
		t.Fatalf("queue should be Done after a is discarded (with b,c) and d is accepted")
	}
}

func TestQueueAscendingOrder(t *testing.T) {
	g := New[string]()
	g.Add("a")
	g.Add("b")

	rank := map[string]float64{"a": 5, "b": 1}
	q := NewQueue(g, func(item string) float64 { return rank[item] }, false)

	item, _ := q.Pick()
	if item != "b" {
		t.Fatalf("ascending queue should pick lowest rank first, got %q", item)
	}
}
