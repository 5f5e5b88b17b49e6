package processors

import (
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// TargetChecker patches every non-phony task to pre-check and
// post-check its target around execution. Grounded on
// original_source/edera/workflow/processors/target_checker.py.
type TargetChecker struct{}

func (TargetChecker) Process(w *workflow.Workflow) error {
	if err := (TargetPostChecker{}).Process(w); err != nil {
		return err
	}
	return (TargetPreChecker{}).Process(w)
}

// TargetPreChecker wraps every non-phony task so its target is checked
// before Execute runs, skipping execution entirely when already
// complete. Grounded on target_prechecker.py.
type TargetPreChecker struct{}

func (TargetPreChecker) Process(w *workflow.Workflow) error {
	for _, t := range w.Graph.Items() {
		if t.Phony() {
			continue
		}
		w.Replace(t, &preCheckingTask{Wrapper: task.Wrapper{Base: t}})
	}
	return nil
}

type preCheckingTask struct{ task.Wrapper }

func (t *preCheckingTask) Execute() error {
	if target := t.Target(); target != nil {
		completed, err := target.Check()
		if err != nil {
			return err
		}
		if completed {
			return nil
		}
	}
	return t.Wrapper.Execute()
}

// TargetPostChecker wraps every non-phony task so its target is
// verified to hold after Execute runs, raising
// xerrors.TargetVerificationError otherwise. Grounded on
// target_postchecker.py.
type TargetPostChecker struct{}

func (TargetPostChecker) Process(w *workflow.Workflow) error {
	for _, t := range w.Graph.Items() {
		if t.Phony() {
			continue
		}
		w.Replace(t, &postCheckingTask{Wrapper: task.Wrapper{Base: t}})
	}
	return nil
}

type postCheckingTask struct{ task.Wrapper }

func (t *postCheckingTask) Execute() error {
	if err := t.Wrapper.Execute(); err != nil {
		return err
	}
	if target := t.Target(); target != nil {
		completed, err := target.Check()
		if err != nil {
			return err
		}
		if !completed {
			return &xerrors.TargetVerificationError{Task: t.Name()}
		}
	}
	return nil
}
