package graph

// Named is implemented by any value with a stable, canonical Name,
// matching edera.nameable.Nameable's "hashable and comparable by name"
// contract. Task and Condition both satisfy it.
type Named interface {
	Name() string
}

// NamedGraph adapts Graph[string] to hold Named values keyed by their
// Name(), matching the source's reliance on hash-by-name equality for
// Tasks and Conditions: a Task or Condition is fully determined by its
// class and parameter values, and Go's default interface identity
// (effectively pointer identity here) would silently violate that by
// treating two logically-equal values as distinct graph nodes. Replace
// swaps the live registered value for a name, moving its edges over
// when the new value's name differs.
type NamedGraph[V Named] struct {
	g        *Graph[string]
	registry map[string]V
}

// NewNamed returns an empty NamedGraph.
func NewNamed[V Named]() *NamedGraph[V] {
	return &NamedGraph[V]{g: New[string](), registry: make(map[string]V)}
}

// Add inserts v if its name is not already present.
func (n *NamedGraph[V]) Add(v V) {
	if _, ok := n.registry[v.Name()]; ok {
		return
	}
	n.registry[v.Name()] = v
	n.g.Add(v.Name())
}

// Link records that child depends on parent, inserting both if absent.
func (n *NamedGraph[V]) Link(parent, child V) {
	n.Add(parent)
	n.Add(child)
	n.g.Link(parent.Name(), child.Name())
}

// Underlying returns the name-keyed Graph backing n, for algorithms
// (linearization, ranking) that only need topology, not live values.
func (n *NamedGraph[V]) Underlying() *Graph[string] { return n.g }

// Has reports whether a value with v's name is present.
func (n *NamedGraph[V]) Has(v V) bool { return n.g.Has(v.Name()) }

// HasName reports whether a value with the given name is present.
func (n *NamedGraph[V]) HasName(name string) bool { return n.g.Has(name) }

// Get returns the live value registered for name.
func (n *NamedGraph[V]) Get(name string) (V, bool) {
	v, ok := n.registry[name]
	return v, ok
}

// Parents returns the direct parents of v.
func (n *NamedGraph[V]) Parents(v V) []V { return n.resolve(n.g.Parents(v.Name())) }

// Children returns the direct children of v.
func (n *NamedGraph[V]) Children(v V) []V { return n.resolve(n.g.Children(v.Name())) }

// Items returns every value in insertion order.
func (n *NamedGraph[V]) Items() []V { return n.resolve(n.g.Items()) }

// Remove deletes the named values and any edges touching them.
func (n *NamedGraph[V]) Remove(vs ...V) {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name()
	}
	n.g.Remove(names...)
	for _, name := range names {
		delete(n.registry, name)
	}
}

// Trace returns v and, recursively, every descendant ("D") or ancestor
// ("A") of v.
func (n *NamedGraph[V]) Trace(v V, direction string) []V {
	return n.resolve(n.g.Trace(v.Name(), direction))
}

// Replace swaps the live value registered for oldValue.Name() with
// newValue. Same-name replacements, the common wrapper case, are a pure
// registry swap; when the names differ, the old node is removed and
// its parent and child edges are re-linked to newValue's name.
func (n *NamedGraph[V]) Replace(oldValue, newValue V) {
	name := oldValue.Name()
	if _, ok := n.registry[name]; !ok {
		return
	}
	if newValue.Name() == name {
		n.registry[name] = newValue
		return
	}
	parents := n.g.Parents(name)
	children := n.g.Children(name)
	n.g.Remove(name)
	delete(n.registry, name)
	n.registry[newValue.Name()] = newValue
	n.g.Add(newValue.Name())
	for _, p := range parents {
		n.g.Link(p, newValue.Name())
	}
	for _, c := range children {
		n.g.Link(newValue.Name(), c)
	}
}

func (n *NamedGraph[V]) resolve(names []string) []V {
	out := make([]V, 0, len(names))
	for _, name := range names {
		if v, ok := n.registry[name]; ok {
			out = append(out, v)
		}
	}
	return out
}
