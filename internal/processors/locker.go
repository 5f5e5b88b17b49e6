package processors

import (
	"github.com/edera-run/workflowd/internal/flag"
	"github.com/edera-run/workflowd/internal/locker"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// TargetLocker makes every targeted task retain a lock during
// execution, so only one instance of the task is active at a time, and
// pre-checks the target after acquisition to avoid double execution.
// Grounded on
// original_source/edera/workflow/processors/target_locker.py.
type TargetLocker struct {
	Locker locker.Locker
}

func (tl TargetLocker) Process(w *workflow.Workflow) error {
	if err := (TargetPreChecker{}).Process(w); err != nil {
		return err
	}
	for _, t := range w.Graph.Items() {
		if t.Target() == nil {
			continue
		}
		w.Replace(t, &lockingTask{Wrapper: task.Wrapper{Base: t}, locker: tl.Locker})
	}
	return nil
}

type lockingTask struct {
	task.Wrapper
	locker locker.Locker
}

func (t *lockingTask) Execute() error {
	name := t.Target().Name()
	lossFlag := flag.NewInterThread()
	lock, err := t.locker.Lock(name, lossFlag.Up)
	if err != nil {
		return err
	}
	defer lock.Unlock()
	if execErr := t.Wrapper.Execute(); execErr != nil {
		return execErr
	}
	if lossFlag.Raised() {
		return &xerrors.LockRetentionError{Key: name}
	}
	return nil
}
