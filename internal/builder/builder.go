// Package builder implements the workflow builder: priority-driven
// requisite expansion from a root task into a Workflow. Grounded on
// original_source/edera/workflow/builder.py.
package builder

import (
	"github.com/edera-run/workflowd/internal/graph"
	"github.com/edera-run/workflowd/internal/requisite"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
)

// request pairs a requisitor with the requisite it must satisfy,
// carrying the requisite's priority for the heap/stack comparison.
type request struct {
	requisitor task.Task
	requisite  requisite.Requisite
}

// Build transforms root into a Workflow by satisfying its Include
// requisite and everything it recursively yields, matching
// WorkflowBuilder.build's heap+stack priority loop.
func Build(root task.Task) *workflow.Workflow {
	result := workflow.New()
	heap := graph.NewHeap[request]()
	var stack []stackFrame

	initial := request{requisitor: nil, requisite: requisite.Include{Task: root}}
	heap.Push(initial.requisite.Priority(), initial)

	for heap.Len() > 0 || len(stack) > 0 {
		_, heapPriority, heapHasTop := heap.Peek()
		if len(stack) == 0 || (heapHasTop && heapPriority > stack[len(stack)-1].priority) {
			req, _, _ := heap.Pop()
			subrequests := satisfy(req, result)
			if subrequests != nil {
				stack = append(stack, stackFrame{
					requests: subrequests,
					priority: req.requisite.Priority(),
				})
			}
			continue
		}

		top := &stack[len(stack)-1]
		if top.index >= len(top.requests) {
			stack = stack[:len(stack)-1]
			continue
		}
		sub := top.requests[top.index]
		top.index++
		if sub.Requisite == nil {
			continue
		}
		requisitor := rereadRequisitor(sub.Requisitor, result)
		next := request{requisitor: requisitor, requisite: sub.Requisite}
		heap.Push(next.requisite.Priority(), next)
	}
	return result
}

type stackFrame struct {
	requests []requisite.Request
	priority float64
	index    int
}

func satisfy(req request, result *workflow.Workflow) []requisite.Request {
	return req.requisite.Satisfy(req.requisitor, result.Graph, result)
}

// rereadRequisitor re-reads the requisitor's identity from the graph,
// since a prior Satisfy call may have replaced it with a wrapper
// (TaskFreezer etc. run after the build, but defensive re-reading
// matches the source's `result[requisitor].item` lookup for forward
// compatibility with in-build wrapping).
func rereadRequisitor(requisitor task.Task, result *workflow.Workflow) task.Task {
	if requisitor == nil {
		return nil
	}
	if live, ok := result.Graph.Get(requisitor.Name()); ok {
		return live
	}
	return requisitor
}
