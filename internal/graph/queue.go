package graph

// Queue drives a rank-ordered traversal of a Graph: items become ready
// once every parent has been Accepted, Pick hands back the
// highest-ranked ready item (ties broken by insertion order via Heap),
// and Discard removes an item together with every transitive descendant
// so they are never picked. Grounded on edera.queue.Queue.
type Queue[K comparable] struct {
	g                *Graph[K]
	rank             func(K) float64
	remainingParents map[K]int
	ready            *Heap[K]
	settled          map[K]struct{}
}

// NewQueue builds a Queue over g. rank assigns each item's traversal
// priority (higher first); descending=false reverses the comparison for
// an ascending-rank traversal.
func NewQueue[K comparable](g *Graph[K], rank func(K) float64, descending bool) *Queue[K] {
	q := &Queue[K]{
		g:                g,
		remainingParents: make(map[K]int),
		ready:            NewHeap[K](),
		settled:          make(map[K]struct{}),
	}
	sign := 1.0
	if !descending {
		sign = -1.0
	}
	q.rank = func(item K) float64 { return sign * rank(item) }
	for _, item := range g.Items() {
		n := len(g.Parents(item))
		q.remainingParents[item] = n
		if n == 0 {
			q.ready.Push(q.rank(item), item)
		}
	}
	return q
}

// Len reports how many items are currently ready to be picked.
func (q *Queue[K]) Len() int { return q.ready.Len() }

// Pick removes and returns the highest-ranked ready item. The caller
// must eventually call Accept or Discard on it.
func (q *Queue[K]) Pick() (K, bool) {
	item, _, ok := q.ready.Pop()
	return item, ok
}

// Accept marks item as successfully completed, making any child whose
// other parents are all settled newly ready.
func (q *Queue[K]) Accept(item K) {
	q.settled[item] = struct{}{}
	for _, child := range q.g.Children(item) {
		if _, done := q.settled[child]; done {
			continue
		}
		q.remainingParents[child]--
		if q.remainingParents[child] <= 0 {
			q.ready.Push(q.rank(child), child)
		}
	}
}

// Discard marks item (and, transitively, every descendant of item) as
// settled without ever becoming ready, matching the "discard" outcome
// propagating through dependents that can no longer run.
func (q *Queue[K]) Discard(item K) {
	for _, victim := range q.g.Trace(item, "D") {
		q.settled[victim] = struct{}{}
	}
}

// Done reports whether every item has been settled (accepted or
// discarded) and nothing remains ready.
func (q *Queue[K]) Done() bool {
	return q.ready.Len() == 0 && len(q.settled) == len(q.g.Items())
}
