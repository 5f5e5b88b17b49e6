package processors

import (
	"github.com/edera-run/workflowd/internal/condition"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
)

// TaskFreezer pre-computes name/requisite/target of every task into an
// immutable wrapper, matching task_freezer.py. It must run first in the
// preprocessor chain, since those three properties are treated as
// immutable per node for the rest of the pipeline afterwards.
type TaskFreezer struct{}

func (TaskFreezer) Process(w *workflow.Workflow) error {
	for _, t := range w.Graph.Items() {
		frozen := &frozenTask{
			Wrapper:   task.Wrapper{Base: t},
			name:      t.Name(),
			requisite: t.Requisite(),
			target:    t.Target(),
		}
		w.Replace(t, frozen)
	}
	return nil
}

type frozenTask struct {
	task.Wrapper
	name      string
	requisite task.Requisite
	target    condition.Condition
}

func (f *frozenTask) Name() string              { return f.name }
func (f *frozenTask) Requisite() task.Requisite  { return f.requisite }
func (f *frozenTask) Target() condition.Condition { return f.target }
