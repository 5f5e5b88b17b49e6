// Package processors implements the workflow processor pipeline:
// normalization, trimming, target caching/locking, tag filtering,
// ranking and test-projection. Grounded on
// original_source/edera/workflow/processor.py and the processors/
// package. Each processor is a pure function that mutates a
// *workflow.Workflow in place, matching WorkflowProcessor.process.
package processors

import "github.com/edera-run/workflowd/internal/workflow"

// Processor transforms a workflow in place.
type Processor interface {
	Process(w *workflow.Workflow) error
}

// Func adapts a plain function to a Processor.
type Func func(w *workflow.Workflow) error

func (f Func) Process(w *workflow.Workflow) error { return f(w) }

// Pipeline runs processors in order, stopping at the first error.
func Pipeline(w *workflow.Workflow, procs ...Processor) error {
	for _, p := range procs {
		if err := p.Process(w); err != nil {
			return err
		}
	}
	return nil
}
