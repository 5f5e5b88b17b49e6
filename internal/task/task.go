// Package task defines the Task contract and its wrapper chain,
// grounded on original_source/edera/task.py.
package task

import "github.com/edera-run/workflowd/internal/condition"

// Requisite is implemented by internal/requisite.Requisite; declared
// here (rather than imported) to avoid a cyclic import between task and
// requisite, which itself needs Task.
type Requisite interface {
	// Priority orders expansion: higher priorities are satisfied first.
	Priority() float64
}

// Task is a hashable unit of work with an optional requisite
// (instruction for the builder), an optional target (a Condition whose
// truth means "complete"), and an Execute operation. A Task with no
// Execute side effect (the default) is "phony": its only job is to
// aggregate dependencies.
type Task interface {
	// Name is the canonical, stable identifier of this task.
	Name() string
	// Execute performs the task's side effect. Returns an excusable
	// error to stop cooperatively, any other error to fail fatally.
	Execute() error
	// Requisite is the builder instruction this task imposes on the
	// workflow being expanded around it, or nil.
	Requisite() Requisite
	// Target is the completeness condition of this task, or nil if the
	// caller is responsible for the consequences of repeated Execute
	// calls.
	Target() condition.Condition
	// Phony reports whether Execute has a genuine side effect. Phony
	// tasks only aggregate dependencies.
	Phony() bool
	// Unwrap returns the base task if this one is a wrapper.
	Unwrap() Task
}

// Base provides the zero-value Requisite/Target/Execute/Phony that most
// concrete tasks embed, matching Task's Python defaults.
type Base struct{}

func (Base) Execute() error                { return nil }
func (Base) Requisite() Requisite          { return nil }
func (Base) Target() condition.Condition   { return nil }
func (Base) Phony() bool                   { return true }
func (Base) Unwrap() Task                  { return nil }

// Wrapper delegates all reads to a Base task, allowing any subset of
// Task behaviors to be overridden. Wrappers compose: cache -> lock ->
// pre-check -> post-check -> report-status -> capture-logs.
type Wrapper struct {
	Base Task
}

func (w *Wrapper) Name() string                  { return w.Base.Name() }
func (w *Wrapper) Execute() error                 { return w.Base.Execute() }
func (w *Wrapper) Requisite() Requisite           { return w.Base.Requisite() }
func (w *Wrapper) Target() condition.Condition    { return w.Base.Target() }
func (w *Wrapper) Phony() bool                    { return w.Base.Phony() }
func (w *Wrapper) Unwrap() Task                    { return w.Base }

// Unwrap fully unwraps t to its innermost base task.
func Unwrap(t Task) Task {
	for {
		inner := t.Unwrap()
		if inner == nil {
			return t
		}
		t = inner
	}
}
