// Package autotest implements workflow auto-testing: scenarios that
// substitute a task's behavior for testing purposes, selectors that
// pick which scenarios apply to which task, and the Test/Stub tasks
// WorkflowTestifier wires into a derived, self-checking workflow.
// Grounded on original_source/edera/testing/{__init__,scenarios,
// selectors,tasks}.py.
package autotest

import (
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// Scenario changes a subject task's behavior for testing purposes: it
// either runs the subject directly (checking its side effects) or
// stands in for one of the subject's dependencies (a "stub").
type Scenario interface {
	// Name identifies the scenario, used to build deterministic Test and
	// Stub task names.
	Name() string
	// Idle reports whether the subject's target should be ignored:
	// scenarios that only check for an expected failure set this true.
	Idle() bool
	// Run executes the scenario against subject.
	Run(subject task.Task) error
	// Stub returns the stubbing scenario to apply to each of subject's
	// dependencies, keyed by dependency name. Omitting a dependency
	// leaves it untouched.
	Stub(subject task.Task, dependencies []task.Task) (map[string]Scenario, error)
}

// registry maps scenario names to constructors, replacing the teacher's
// HTTP plugin registry (cmd/workflowd/plugins.go's name -> constructor
// map) with the same pattern for a non-HTTP concern: the workflow
// annotation only stores scenario *names* (so it stays a plain string
// slice, serializable like every other annotation), and selectors
// resolve them back to live Scenario values through this registry.
var registry = map[string]func() Scenario{
	"DefaultScenario": func() Scenario { return DefaultScenario{} },
}

// Register adds a named scenario constructor to the registry.
func Register(name string, ctor func() Scenario) { registry[name] = ctor }

// Resolve looks up a scenario by name.
func Resolve(name string) (Scenario, bool) {
	ctor, ok := registry[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// DefaultScenario executes the subject itself and checks its target
// afterwards, assuming the same scenario recursively for every
// dependency. Grounded on scenarios.py's DefaultScenario.
type DefaultScenario struct{}

func (DefaultScenario) Name() string { return "DefaultScenario" }
func (DefaultScenario) Idle() bool   { return false }

func (DefaultScenario) Run(subject task.Task) error {
	if err := subject.Execute(); err != nil {
		return err
	}
	target := subject.Target()
	if target == nil {
		return nil
	}
	completed, err := target.Check()
	if err != nil {
		return err
	}
	if !completed {
		return &xerrors.TargetVerificationError{Task: subject.Name()}
	}
	return nil
}

func (DefaultScenario) Stub(_ task.Task, dependencies []task.Task) (map[string]Scenario, error) {
	out := make(map[string]Scenario, len(dependencies))
	for _, dep := range dependencies {
		out[dep.Name()] = DefaultScenario{}
	}
	return out, nil
}
