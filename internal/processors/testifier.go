package processors

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/edera-run/workflowd/internal/autotest"
	"github.com/edera-run/workflowd/internal/condition"
	"github.com/edera-run/workflowd/internal/partitioner"
	"github.com/edera-run/workflowd/internal/storage"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// subEntry is one task's assigned scenario within a substitution: Direct
// marks a scenario the selector chose for this task itself (becomes a
// Test), as opposed to one pulled in to stub a dependency (becomes a
// Stub).
type subEntry struct {
	Scenario autotest.Scenario
	Direct   bool
}

// substitution maps a task name to the scenario it runs under.
type substitution map[string]subEntry

// WorkflowTestifier derives self-testing subgraphs from a workflow: for
// every (task, scenario) pair Selector picks, it walks the scenario's
// transitive stub requirements, groups non-conflicting substitutions
// into partitions (each becoming one color-tagged, suffixed copy of the
// affected subgraph), and appends Test/Stub tasks wired to run them.
// Grounded on original_source/edera/workflow/processors/
// workflow_testifier.py.
type WorkflowTestifier struct {
	Cache       storage.Storage
	Selector    autotest.TestSelector
	Partitioner partitioner.Partitioner[string, string]
}

func (t WorkflowTestifier) Process(w *workflow.Workflow) error {
	selector := t.Selector
	if selector == nil {
		selector = autotest.AllTestSelector{}
	}
	part := t.Partitioner
	if part == nil {
		part = partitioner.Greedy[string, string]{}
	}

	byName := make(map[string]task.Task, len(w.Tasks()))
	for _, tk := range w.Tasks() {
		byName[tk.Name()] = tk
	}

	subs := make(map[string]substitution)
	names := make(map[string]map[string]string)
	for _, subject := range w.Tasks() {
		for _, scenario := range selector.Select(w, subject) {
			sub, err := t.findSubstitution(w, byName, subject, scenario)
			if err != nil {
				return err
			}
			key := subject.Name() + "#" + scenario.Name()
			subs[key] = sub
			mapping := make(map[string]string, len(sub))
			for name, entry := range sub {
				mapping[name] = entry.Scenario.Name()
			}
			names[key] = mapping
		}
	}
	if len(subs) == 0 {
		return nil
	}

	for _, p := range part.Partition(names) {
		merged := make(substitution)
		var testNames []string
		for _, key := range p.Items {
			for name, entry := range subs[key] {
				if existing, ok := merged[name]; ok {
					if existing.Scenario.Name() != entry.Scenario.Name() {
						return &xerrors.WorkflowTestificationError{Reason: "conflicting scenario for " + name}
					}
					if entry.Direct {
						existing.Direct = true
						merged[name] = existing
					}
					continue
				}
				merged[name] = entry
			}
			testNames = append(testNames, key)
		}
		sort.Strings(testNames)
		color := sha1Hex(strings.Join(testNames, "\n"))[:8]
		if err := t.project(w, byName, merged, color); err != nil {
			return err
		}
	}
	return nil
}

// findSubstitution walks scenario's transitive stub requirements for
// subject, returning the name->entry map of every task involved
// (subject included, marked Direct). Conflicting or out-of-dependency
// stubs fail.
func (t WorkflowTestifier) findSubstitution(w *workflow.Workflow, byName map[string]task.Task, subject task.Task, scenario autotest.Scenario) (substitution, error) {
	sub := substitution{subject.Name(): {Scenario: scenario, Direct: true}}
	type pending struct {
		subject  task.Task
		scenario autotest.Scenario
	}
	queue := []pending{{subject, scenario}}

	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]

		deps := w.Graph.Parents(head.subject)
		stubs, err := head.scenario.Stub(head.subject, deps)
		if err != nil {
			return nil, &xerrors.WorkflowTestificationError{Reason: err.Error()}
		}
		depNames := make(map[string]bool, len(deps))
		for _, dep := range deps {
			depNames[dep.Name()] = true
		}
		for name, stubScenario := range stubs {
			if !depNames[name] {
				return nil, &xerrors.WorkflowTestificationError{Reason: "stub for non-dependency " + name}
			}
			if existing, ok := sub[name]; ok {
				if existing.Scenario.Name() != stubScenario.Name() {
					return nil, &xerrors.WorkflowTestificationError{Reason: "conflicting stub for " + name}
				}
				continue
			}
			sub[name] = subEntry{Scenario: stubScenario}
			if depTask, ok := byName[name]; ok {
				queue = append(queue, pending{depTask, stubScenario})
			}
		}
	}
	return sub, nil
}

// project adds one color-tagged, suffixed copy of sub's subgraph to w:
// every involved task is wrapped to run under its assigned scenario
// (Test for a direct subject, Stub for a stand-in dependency) and
// suffixed so it coexists with the original and with other partitions.
// Edges are added only between suffixed tasks that are both in sub, and
// only when the parent is not itself a Test (tests are sinks).
func (t WorkflowTestifier) project(w *workflow.Workflow, byName map[string]task.Task, sub substitution, color string) error {
	suffix := " #" + color
	projected := make(map[string]task.Task, len(sub))

	names := make([]string, 0, len(sub))
	for name := range sub {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		base, ok := byName[name]
		if !ok {
			continue
		}
		entry := sub[name]
		var wrapped task.Task
		if entry.Direct {
			wrapped = &autotest.Test{Scenario: entry.Scenario, Subject: base, Registry: t.Cache}
		} else {
			wrapped = &autotest.Stub{Scenario: entry.Scenario, Subject: base}
		}
		suffixed := &suffixingTaskWrapper{Wrapper: task.Wrapper{Base: wrapped}, suffix: suffix}
		projected[name] = suffixed
		w.Graph.Add(suffixed)
		w.SetColor(suffixed, color)
	}

	for _, name := range names {
		child := projected[name]
		base := byName[name]
		for _, parent := range w.Graph.Parents(base) {
			parentProjected, ok := projected[parent.Name()]
			if !ok {
				continue
			}
			if _, isTest := task.Unwrap(parentProjected).(*autotest.Test); isTest {
				continue
			}
			w.Graph.Link(parentProjected, child)
		}
	}
	return nil
}

// suffixingTaskWrapper appends suffix to a task's name and its target's
// name/invariants, letting a projected copy of a task coexist with the
// original under a different identity. Grounded on
// workflow_testifier.py's SuffixingTaskWrapper.
type suffixingTaskWrapper struct {
	task.Wrapper
	suffix string
}

func (t *suffixingTaskWrapper) Name() string { return t.Wrapper.Name() + t.suffix }

func (t *suffixingTaskWrapper) Target() condition.Condition {
	base := t.Wrapper.Target()
	if base == nil {
		return nil
	}
	return &suffixingConditionWrapper{Wrapper: condition.Wrapper{Base: base}, suffix: t.suffix}
}

// suffixingConditionWrapper is SuffixingConditionWrapper: it suffixes
// its own name and every invariant it exposes.
type suffixingConditionWrapper struct {
	condition.Wrapper
	suffix string
}

func (c *suffixingConditionWrapper) Name() string { return c.Wrapper.Name() + c.suffix }

func (c *suffixingConditionWrapper) Invariants() []condition.Condition {
	base := c.Wrapper.Invariants()
	if base == nil {
		return nil
	}
	out := make([]condition.Condition, len(base))
	for i, inv := range base {
		out[i] = &suffixingConditionWrapper{Wrapper: condition.Wrapper{Base: inv}, suffix: c.suffix}
	}
	return out
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
