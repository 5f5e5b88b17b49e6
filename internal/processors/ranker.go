package processors

import (
	"github.com/edera-run/workflowd/internal/linearizer"
	"github.com/edera-run/workflowd/internal/workflow"
)

// TaskRanker annotates every task with its position in a linearization,
// grounded on
// original_source/edera/workflow/processors/task_ranker.py.
type TaskRanker struct{}

func (TaskRanker) Process(w *workflow.Workflow) error {
	order, err := linearizer.LinearizeNamed(w.Graph)
	if err != nil {
		return err
	}
	for rank, t := range order {
		w.SetRank(t, rank)
	}
	return nil
}
