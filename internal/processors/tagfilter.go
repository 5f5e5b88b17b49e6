package processors

import (
	"github.com/edera-run/workflowd/internal/linearizer"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
)

// TagFilter removes every task whose tag differs from Tag and none of
// whose descendants match, matching tag_filter.py's reversed-
// linearization foreigner marking.
type TagFilter struct {
	Tag string
}

func (f TagFilter) Process(w *workflow.Workflow) error {
	order, err := linearizer.LinearizeNamed(w.Graph)
	if err != nil {
		return err
	}
	foreigners := make(map[string]struct{})
	for i := len(order) - 1; i >= 0; i-- {
		t := order[i]
		if w.Tag(t) == f.Tag {
			continue
		}
		if childrenAreForeign(w, t, foreigners) {
			foreigners[t.Name()] = struct{}{}
		}
	}
	var victims []task.Task
	for _, t := range order {
		if _, ok := foreigners[t.Name()]; ok {
			victims = append(victims, t)
		}
	}
	w.Graph.Remove(victims...)
	return nil
}

func childrenAreForeign(w *workflow.Workflow, t task.Task, foreigners map[string]struct{}) bool {
	for _, child := range w.Graph.Children(t) {
		if _, ok := foreigners[child.Name()]; !ok {
			return false
		}
	}
	return true
}
