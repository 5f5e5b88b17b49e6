package processors

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"

	"github.com/edera-run/workflowd/internal/condition"
	"github.com/edera-run/workflowd/internal/storage"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// TargetCacher makes every task examine a Storage cache before checking
// its real target, and register the target once it becomes true.
// Stacking cachers (remote then local) is the preferred order, per
// original_source/edera/workflow/processors/target_cacher.py.
//
// This optimization only helps on normalized workflows: run
// WorkflowNormalizer first.
type TargetCacher struct {
	Cache storage.Storage
}

func (c TargetCacher) Process(w *workflow.Workflow) error {
	for _, t := range w.Graph.Items() {
		target := t.Target()
		if target == nil {
			continue
		}
		cached := &cachingCondition{Wrapper: condition.Wrapper{Base: target}, cache: c.Cache}
		w.Replace(t, &targetOverridingTask{Wrapper: task.Wrapper{Base: t}, target: cached})
	}
	return nil
}

type cachingCondition struct {
	condition.Wrapper
	cache storage.Storage
}

func (c *cachingCondition) Check() (bool, error) {
	key := cacheKey(c.Name())
	one := 1
	if records, err := c.cache.Get(key, nil, &one); err == nil && len(records) > 0 {
		return true, nil
	} else if err != nil && !errors.As(err, new(*xerrors.StorageOperationError)) {
		return false, err
	}
	completed, err := c.Wrapper.Check()
	if err != nil {
		return false, err
	}
	if completed {
		_, _ = c.cache.Put(key, "!")
	}
	return completed, nil
}

func cacheKey(name string) string {
	sum := sha1.Sum([]byte(name))
	return hex.EncodeToString(sum[:])
}
