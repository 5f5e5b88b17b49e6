// Package workflow defines the Workflow type: a Graph of Tasks plus the
// per-node annotations (tag, color, rank, tests, baggage) the processor
// pipeline reads and writes. Grounded on original_source/edera/workflow/
// __init__.py and its GraphNode.annotation dict.
package workflow

import (
	"sort"
	"sync"

	"github.com/edera-run/workflowd/internal/graph"
	"github.com/edera-run/workflowd/internal/requisite"
	"github.com/edera-run/workflowd/internal/task"
)

// Annotation keys used by the builder and processor pipeline.
const (
	KeyTag     = "tag"
	KeyColor   = "color"
	KeyRank    = "rank"
	KeyTests   = "tests"
	KeyBaggage = "baggage"
)

// Workflow is a Graph of Tasks, hashed by Name() rather than Go
// interface identity (see graph.NamedGraph), with per-name string-keyed
// annotations.
type Workflow struct {
	Graph *graph.NamedGraph[task.Task]

	mu          sync.RWMutex
	annotations map[string]map[string]any
}

// New returns an empty Workflow.
func New() *Workflow {
	return &Workflow{Graph: graph.NewNamed[task.Task](), annotations: make(map[string]map[string]any)}
}

// Get implements requisite.Annotations.
func (w *Workflow) Get(t task.Task, key string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	node, ok := w.annotations[t.Name()]
	if !ok {
		return nil, false
	}
	v, ok := node[key]
	return v, ok
}

// Set implements requisite.Annotations.
func (w *Workflow) Set(t task.Task, key string, value any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	node, ok := w.annotations[t.Name()]
	if !ok {
		node = make(map[string]any)
		w.annotations[t.Name()] = node
	}
	node[key] = value
}

var _ requisite.Annotations = (*Workflow)(nil)

// Tag returns the tag annotation of t, or "" if unset.
func (w *Workflow) Tag(t task.Task) string {
	v, ok := w.Get(t, KeyTag)
	if !ok {
		return ""
	}
	return v.(string)
}

// SetTag sets the tag annotation of t.
func (w *Workflow) SetTag(t task.Task, tag string) { w.Set(t, KeyTag, tag) }

// Color returns the color annotation of t, or "" if unset.
func (w *Workflow) Color(t task.Task) string {
	v, ok := w.Get(t, KeyColor)
	if !ok {
		return ""
	}
	return v.(string)
}

// SetColor sets the color annotation of t.
func (w *Workflow) SetColor(t task.Task, color string) { w.Set(t, KeyColor, color) }

// Rank returns the rank annotation of t, or 0 if unset.
func (w *Workflow) Rank(t task.Task) int {
	v, ok := w.Get(t, KeyRank)
	if !ok {
		return 0
	}
	return v.(int)
}

// SetRank sets the rank annotation of t.
func (w *Workflow) SetRank(t task.Task, rank int) { w.Set(t, KeyRank, rank) }

// Tests returns the test-scenario names registered against t.
func (w *Workflow) Tests(t task.Task) []string {
	v, ok := w.Get(t, KeyTests)
	if !ok {
		return nil
	}
	return v.([]string)
}

// SetTests sets the tests annotation of t.
func (w *Workflow) SetTests(t task.Task, tests []string) { w.Set(t, KeyTests, tests) }

// Baggage returns the metadata exported to monitoring for t.
func (w *Workflow) Baggage(t task.Task) map[string]string {
	v, ok := w.Get(t, KeyBaggage)
	if !ok {
		return nil
	}
	return v.(map[string]string)
}

// SetBaggage sets the baggage annotation of t.
func (w *Workflow) SetBaggage(t task.Task, baggage map[string]string) {
	w.Set(t, KeyBaggage, baggage)
}

// Tasks returns every task currently in the workflow, in insertion order.
func (w *Workflow) Tasks() []task.Task { return w.Graph.Items() }

// SortedByName returns tasks sorted by name, for deterministic output.
func SortedByName(tasks []task.Task) []task.Task {
	out := append([]task.Task(nil), tasks...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Clone returns a shallow copy of w: the same task identities, with
// annotations copied so mutating the clone's annotations doesn't affect
// w (used by the Monitoring Agent's Embrace, which wraps tasks in a
// clone rather than mutating the live workflow in place).
func (w *Workflow) Clone() *Workflow {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := New()
	for _, t := range w.Graph.Items() {
		out.Graph.Add(t)
	}
	for _, t := range w.Graph.Items() {
		for _, parent := range w.Graph.Parents(t) {
			out.Graph.Link(parent, t)
		}
	}
	for name, node := range w.annotations {
		copied := make(map[string]any, len(node))
		for k, v := range node {
			copied[k] = v
		}
		out.annotations[name] = copied
	}
	return out
}

// Replace substitutes the live value registered under oldTask.Name()
// with newTask, without touching any edge (the common case: a
// processor wrapping a task in place), matching Graph.replace in the
// distillation source.
func (w *Workflow) Replace(oldTask, newTask task.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if node, ok := w.annotations[oldTask.Name()]; ok && oldTask.Name() != newTask.Name() {
		w.annotations[newTask.Name()] = node
		delete(w.annotations, oldTask.Name())
	}
	w.Graph.Replace(oldTask, newTask)
}
