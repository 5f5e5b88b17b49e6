// Package executor drives a built, processed Workflow to completion:
// Basic performs the rank-ordered pick/execute/accept/discard
// traversal, Managed brackets a run in a manager.Manager, and
// Monitoring has an agent embrace the workflow before delegating.
// Grounded on original_source/edera/workflow/executor.py and
// edera/workflow/executors/{basic,managed,monitoring}.py.
package executor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/edera-run/workflowd/internal/graph"
	"github.com/edera-run/workflowd/internal/manager"
	"github.com/edera-run/workflowd/internal/routine"
	"github.com/edera-run/workflowd/internal/workflow"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// Executor runs every task in w to completion, in dependency order.
type Executor interface {
	Execute(ctx context.Context, w *workflow.Workflow) error
}

// Basic is the rank-ordered executor: it traverses w's graph picking
// the highest-ranked ready task, skips phony tasks and tasks whose
// target already holds, executes the rest, and discards (along with
// every descendant) any task that fails or stops. Grounded on
// edera/workflow/executors/basic.py.
type Basic struct{}

// tracer and meter instruments mirror the teacher's DAGEngine
// (services/orchestrator/dag_engine.go): a "task.execute" span per task
// plus duration/failure/stop counters, acquired the way
// resilience.Retry acquires its own meter inline rather than threading
// one through every call site.
var tracer = otel.Tracer("swarm-go")

func (Basic) Execute(ctx context.Context, w *workflow.Workflow) error {
	meter := otel.Meter("swarm-go")
	taskDuration, _ := meter.Float64Histogram("swarm_workflow_task_duration_ms")
	taskFailures, _ := meter.Int64Counter("swarm_workflow_task_failures_total")
	taskStopped, _ := meter.Int64Counter("swarm_workflow_task_stopped_total")

	rank := func(name string) float64 {
		t, ok := w.Graph.Get(name)
		if !ok {
			return 0
		}
		return float64(w.Rank(t))
	}
	q := graph.NewQueue(w.Graph.Underlying(), rank, true)

	var failed, stopped []string
	for !q.Done() {
		if err := routine.Checkpoint(ctx); err != nil {
			return err
		}
		name, ok := q.Pick()
		if !ok {
			break
		}
		t, ok := w.Graph.Get(name)
		if !ok {
			q.Accept(name)
			continue
		}
		if t.Phony() {
			q.Accept(name)
			continue
		}
		if target := t.Target(); target != nil {
			completed, err := target.Check()
			if err != nil {
				return err
			}
			if completed {
				q.Accept(name)
				continue
			}
		}
		nameAttr := attribute.String("task_name", name)
		_, span := tracer.Start(ctx, "task.execute", trace.WithAttributes(nameAttr))
		start := time.Now()
		err := t.Execute()
		taskDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(nameAttr))
		switch {
		case err == nil:
			q.Accept(name)
		case xerrors.IsExcusable(err):
			span.AddEvent("stopped")
			taskStopped.Add(ctx, 1, metric.WithAttributes(nameAttr))
			stopped = append(stopped, name)
			q.Discard(name)
		default:
			span.RecordError(err)
			taskFailures.Add(ctx, 1, metric.WithAttributes(nameAttr))
			failed = append(failed, name)
			q.Discard(name)
		}
		span.End()
	}

	if len(failed) > 0 {
		return &xerrors.WorkflowExecutionError{Failed: failed}
	}
	if len(stopped) > 0 {
		return &xerrors.ExcusableWorkflowExecutionError{Stopped: stopped}
	}
	return nil
}

// Managed brackets a delegate's run inside a manager.Manager. Grounded
// on edera/workflow/executors/managed.py.
type Managed struct {
	Executor Executor
	Manager  manager.Manager
}

func (m Managed) Execute(ctx context.Context, w *workflow.Workflow) error {
	return manager.Run(m.Manager, func() error {
		return m.Executor.Execute(ctx, w)
	})
}

// Embracer is satisfied by *monitoring.Agent; declared here to avoid a
// cyclic import (monitoring wraps tasks, it doesn't drive execution).
type Embracer interface {
	Embrace(w *workflow.Workflow) *workflow.Workflow
}

// Monitoring has Agent embrace w (registering it and wrapping its
// tasks to report status) before delegating to Executor. Grounded on
// edera/workflow/executors/monitoring.py.
type Monitoring struct {
	Executor Executor
	Agent    Embracer
}

func (m Monitoring) Execute(ctx context.Context, w *workflow.Workflow) error {
	target := w
	if m.Agent != nil {
		target = m.Agent.Embrace(w)
	}
	return m.Executor.Execute(ctx, target)
}
