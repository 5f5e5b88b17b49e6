package processors

import (
	"fmt"

	"github.com/edera-run/workflowd/internal/box"
	"github.com/edera-run/workflowd/internal/condition"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
)

// TaskSegregator uses "color" annotations to separate environments for
// tasks: right before each task execution and target check, the
// corresponding color is stored in Box (or nil if the task has no
// color), then the box is emptied again afterwards. Grounded on
// original_source/edera/workflow/processors/task_segregator.py.
//
// Task parameters must not depend on the environment; only the
// execution/check side effects may read Box. Apply this before
// WorkflowTrimmer, which performs target checks.
type TaskSegregator struct {
	Box box.Box
}

func (s TaskSegregator) Process(w *workflow.Workflow) error {
	for _, t := range w.Graph.Items() {
		color := w.Color(t)
		w.Replace(t, &segregatingTask{Wrapper: task.Wrapper{Base: t}, color: color, box: s.Box})
	}
	return nil
}

type segregatingTask struct {
	task.Wrapper
	color string
	box   box.Box
}

func (t *segregatingTask) Execute() error {
	if t.box.Get() != nil {
		return fmt.Errorf("segregation box is not empty")
	}
	t.box.Put(t.color)
	defer t.box.Put(nil)
	return t.Wrapper.Execute()
}

func (t *segregatingTask) Target() condition.Condition {
	base := t.Wrapper.Target()
	if base == nil {
		return nil
	}
	return &segregatingCondition{Wrapper: condition.Wrapper{Base: base}, color: t.color, box: t.box}
}

type segregatingCondition struct {
	condition.Wrapper
	color string
	box   box.Box
}

func (c *segregatingCondition) Check() (bool, error) {
	if c.box.Get() != nil {
		return false, fmt.Errorf("segregation box is not empty")
	}
	c.box.Put(c.color)
	defer c.box.Put(nil)
	return c.Wrapper.Check()
}
