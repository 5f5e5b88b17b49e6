package autotest

import (
	"github.com/edera-run/workflowd/internal/condition"
	"github.com/edera-run/workflowd/internal/nameable"
	"github.com/edera-run/workflowd/internal/requisite"
	"github.com/edera-run/workflowd/internal/storage"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
)

// TestableTask auto-annotates a task with its default "tests" set
// ($DefaultScenario, unless it is phony or ExtraTests overrides it),
// grounded on tasks.py's TestableTask. Embed it alongside task.Base in a
// concrete task to opt into auto-testing.
type TestableTask struct {
	// ExtraTests names the scenarios to register; when non-empty it
	// replaces DefaultScenario rather than adding to it.
	ExtraTests []string
}

func (t TestableTask) TestsRequisite(self task.Task) requisite.Requisite {
	tests := t.ExtraTests
	if len(tests) == 0 && !self.Phony() {
		tests = []string{"DefaultScenario"}
	}
	return requisite.Annotate{Key: workflow.KeyTests, Value: tests}
}

// Test runs Scenario against Subject and registers itself in Registry
// once it passes, grounded on tasks.py's Test.
type Test struct {
	task.Base
	Scenario Scenario
	Subject  task.Task
	Registry storage.Storage
}

func (t *Test) Name() string {
	return nameable.Build("Test",
		nameable.Param{Key: "scenario", Value: t.Scenario.Name()},
		nameable.Param{Key: "subject", Value: t.Subject.Name()})
}

func (t *Test) Phony() bool { return false }

func (t *Test) Execute() error {
	if err := t.Scenario.Run(t.Subject); err != nil {
		return err
	}
	_, err := t.Registry.Put(t.Name(), "!")
	return err
}

func (t *Test) Target() condition.Condition { return &TestPassed{Test: t} }

// TestPassed holds once its Test has recorded a pass in the registry,
// grounded on tasks.py's TestPassed.
type TestPassed struct {
	condition.Base
	Test *Test
}

func (c *TestPassed) Name() string {
	return nameable.Build("TestPassed", nameable.Param{Key: "test", Value: c.Test.Name()})
}

func (c *TestPassed) Check() (bool, error) {
	one := 1
	records, err := c.Test.Registry.Get(c.Test.Name(), nil, &one)
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

func (c *TestPassed) Invariants() []condition.Condition {
	if c.Test.Scenario.Idle() {
		return nil
	}
	subjectTarget := c.Test.Subject.Target()
	if subjectTarget == nil {
		return nil
	}
	return []condition.Condition{condition.Implies(c, subjectTarget)}
}

// Stub mimics Subject's behavior for Scenario and shares its target,
// grounded on tasks.py's Stub.
type Stub struct {
	task.Base
	Scenario Scenario
	Subject  task.Task
}

func (s *Stub) Name() string {
	return nameable.Build("Stub",
		nameable.Param{Key: "scenario", Value: s.Scenario.Name()},
		nameable.Param{Key: "subject", Value: s.Subject.Name()})
}

func (s *Stub) Phony() bool                 { return false }
func (s *Stub) Execute() error              { return s.Scenario.Run(s.Subject) }
func (s *Stub) Target() condition.Condition { return s.Subject.Target() }
