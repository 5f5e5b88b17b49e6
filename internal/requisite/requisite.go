// Package requisite implements the builder instructions a Task imposes
// on the workflow being expanded around it: Include, Follow, Assign,
// Annotate, SatisfyAll, and the shortcut auto-coercion rules. Grounded
// on original_source/edera/requisite.py and requisites.py.
package requisite

import (
	"sort"

	"github.com/edera-run/workflowd/internal/graph"
	"github.com/edera-run/workflowd/internal/task"
)

// Request is a (requisitor, requisite) pair yielded during Satisfy, the
// Go equivalent of the Python generator's `yield (requisitor, requisite)`.
type Request struct {
	Requisitor task.Task // nil means "no particular requisitor"
	Requisite  Requisite
}

// Requisite is an instruction applied to the (partial) workflow during
// build.
type Requisite interface {
	// Priority orders expansion; higher priorities are satisfied first.
	Priority() float64
	// Satisfy adjusts workflow for requisitor, optionally yielding
	// further (requisitor, requisite) pairs to satisfy afterwards.
	Satisfy(requisitor task.Task, workflow *graph.NamedGraph[task.Task], annotations Annotations) []Request
}

// Annotations is the per-node key->value annotation store a Graph
// doesn't itself know how to hold (since Graph is generic over items
// only); Annotate/the Builder share one keyed by task name.
type Annotations interface {
	Get(t task.Task, key string) (any, bool)
	Set(t task.Task, key string, value any)
}

// Annotate sets a node annotation. Priority -1 (higher than the
// default Follow, lower than Include).
type Annotate struct {
	Key   string
	Value any
}

func (Annotate) Priority() float64 { return -1 }

func (a Annotate) Satisfy(requisitor task.Task, workflow *graph.NamedGraph[task.Task], ann Annotations) []Request {
	if _, exists := ann.Get(requisitor, a.Key); exists {
		panic("requisite: annotation " + a.Key + " already set for " + requisitor.Name())
	}
	ann.Set(requisitor, a.Key, a.Value)
	return nil
}

// Assign delegates requisite to task, including it into the workflow
// automatically. Priority -1.
type Assign struct {
	Task      task.Task
	Requisite Requisite
}

func (Assign) Priority() float64 { return -1 }

func (a Assign) Satisfy(requisitor task.Task, workflow *graph.NamedGraph[task.Task], ann Annotations) []Request {
	return []Request{
		{Requisitor: nil, Requisite: Include{Task: a.Task}},
		{Requisitor: a.Task, Requisite: a.Requisite},
	}
}

// Follow adds an edge task->requisitor, including task into the
// workflow automatically. requisitor must not be nil. Priority -2 (the
// lowest default).
type Follow struct {
	Task task.Task
}

func (Follow) Priority() float64 { return -2 }

func (f Follow) Satisfy(requisitor task.Task, workflow *graph.NamedGraph[task.Task], ann Annotations) []Request {
	if requisitor == nil {
		panic("requisite: Follow requires a non-nil requisitor")
	}
	// Include before linking: Link adds the task as a node, after which
	// Include would see it as present and skip its Requisite().
	var out []Request
	if !workflow.Has(f.Task) {
		out = Include{Task: f.Task}.Satisfy(nil, workflow, ann)
	}
	workflow.Link(f.Task, requisitor)
	return append(out, Request{Requisitor: nil, Requisite: Include{Task: f.Task}})
}

// Include adds a task into the workflow, recursively satisfying its own
// Requisite(). Idempotent: satisfying it twice for the same task is a
// no-op. Priority +1 (higher than the default).
type Include struct {
	Task task.Task
}

func (Include) Priority() float64 { return 1 }

func (in Include) Satisfy(requisitor task.Task, workflow *graph.NamedGraph[task.Task], ann Annotations) []Request {
	if workflow.Has(in.Task) {
		return nil
	}
	workflow.Add(in.Task)
	if req := in.Task.Requisite(); req != nil {
		return []Request{{Requisitor: in.Task, Requisite: req.(Requisite)}}
	}
	return nil
}

// SatisfyAll fans out to other requisites, preserving the requisitor.
// This is a helper that lets requisite collections be treated as a
// single requisite.
type SatisfyAll struct {
	Requisites []Requisite
}

func (SatisfyAll) Priority() float64 { return 0 }

func (s SatisfyAll) Satisfy(requisitor task.Task, workflow *graph.NamedGraph[task.Task], ann Annotations) []Request {
	out := make([]Request, len(s.Requisites))
	for i, r := range s.Requisites {
		out[i] = Request{Requisitor: requisitor, Requisite: r}
	}
	return out
}

// FromTasks builds the SatisfyAll-over-Follow shortcut for "depend on
// all of these tasks", the idiomatic Go replacement for the Python
// iterable-to-SatisfyAll auto-coercion (Go has no single "any iterable"
// shortcut type, so callers that would have handed requisites.conform a
// list call requisite.FromTasks/FromAssignments explicitly instead).
func FromTasks(tasks ...task.Task) Requisite {
	requisites := make([]Requisite, len(tasks))
	for i, t := range tasks {
		requisites[i] = Follow{Task: t}
	}
	return SatisfyAll{Requisites: requisites}
}

// FromAssignments builds the SatisfyAll-over-Assign shortcut for "assign
// sub-requisites to other tasks", replacing the Python mapping-to-Assign
// auto-coercion. Assignments are sorted by task name for determinism.
func FromAssignments(assignments map[task.Task]Requisite) Requisite {
	tasks := make([]task.Task, 0, len(assignments))
	for t := range assignments {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name() < tasks[j].Name() })
	requisites := make([]Requisite, len(tasks))
	for i, t := range tasks {
		requisites[i] = Assign{Task: t, Requisite: assignments[t]}
	}
	return SatisfyAll{Requisites: requisites}
}
