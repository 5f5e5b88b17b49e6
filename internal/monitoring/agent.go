// Package monitoring: Agent wraps a workflow's tasks so their progress
// is pushed through a Consumer, and provides the agent-discovery
// helpers the Watcher uses for GC. Grounded on original_source/edera/
// monitoring/agent.py.
package monitoring

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/edera-run/workflowd/internal/box"
	"github.com/edera-run/workflowd/internal/condition"
	"github.com/edera-run/workflowd/internal/consumer"
	"github.com/edera-run/workflowd/internal/storage"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
	"github.com/edera-run/workflowd/internal/xerrors"
)

const agentKey = "agent"

// Agent is the executor-side half of monitoring: it registers its name,
// embraces workflows (wrapping their tasks to report progress), and
// pushes updates through Consumer.
type Agent struct {
	Name     string
	Monitor  storage.Storage
	Consumer consumer.Consumer
}

// NewAgent returns an Agent that pushes its updates directly to
// monitor's "update/<name>" key via a synchronous consumer.Basic.
// Callers wanting buffering or a NATS-backed Consumer should set
// Consumer explicitly afterward.
func NewAgent(name string, monitor storage.Storage) *Agent {
	a := &Agent{Name: name, Monitor: monitor}
	a.Consumer = consumer.Basic{Handler: func(element string) error {
		_, err := monitor.Put("update/"+name, element)
		return err
	}}
	return a
}

// Readonly reports whether this agent has nowhere to push updates.
func (a *Agent) Readonly() bool { return a.Consumer == nil }

// Register records this agent's name under the shared "agent" key.
func (a *Agent) Register() error {
	_, err := a.Monitor.Put(agentKey, a.Name)
	return err
}

// Discover returns every agent name ever registered, re-publishing each
// one so the storage's record index advances - this is what lets a GC
// pass eventually drop truly old agent records while keeping currently
// known agents visible. Grounded on MonitoringAgent.discover.
func Discover(monitor storage.Storage) ([]string, error) {
	records, err := monitor.Get(agentKey, nil, nil)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(records))
	var names []string
	for _, r := range records {
		if !seen[r.Value] {
			seen[r.Value] = true
			names = append(names, r.Value)
		}
	}
	for _, name := range names {
		if _, err := monitor.Put(agentKey, name); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// Drop removes agent records below till, grounded on
// MonitoringAgent.drop.
func Drop(monitor storage.Storage, till *int) error {
	return monitor.Delete(agentKey, till)
}

func (a *Agent) push(update Update) {
	if a.Readonly() {
		return
	}
	element, err := EncodeUpdate(update)
	if err != nil {
		slog.Error("failed to encode monitoring update", "error", err)
		return
	}
	if err := a.Consumer.Push(element); err != nil {
		if xerrors.IsExcusable(err) {
			slog.Warn("monitoring update dropped", "error", err)
			return
		}
		slog.Error("failed to push monitoring update", "error", err)
	}
}

// Embrace registers this workflow's current shape with the monitor and
// returns a clone with every non-phony task wrapped to report its
// status and capture its logs. Grounded on MonitoringAgent.embrace.
func (a *Agent) Embrace(w *workflow.Workflow) *workflow.Workflow {
	dependencies := make(map[string][]string)
	phonies := make(map[string]bool)
	baggages := make(map[string]map[string]string)
	for _, t := range w.Tasks() {
		var deps []string
		for _, parent := range w.Graph.Parents(t) {
			deps = append(deps, parent.Name())
		}
		dependencies[t.Name()] = deps
		phonies[t.Name()] = t.Phony()
		baggages[t.Name()] = w.Baggage(t)
	}
	a.push(WorkflowUpdate{Dependencies: dependencies, Phonies: phonies, Baggages: baggages})

	clone := w.Clone()
	for _, t := range clone.Tasks() {
		if t.Phony() {
			continue
		}
		reporting := &statusReportingTaskWrapper{Wrapper: task.Wrapper{Base: t}, agent: a}
		capturing := &logCapturingTaskWrapper{Wrapper: task.Wrapper{Base: reporting}, agent: a, taskName: t.Name()}
		clone.Replace(t, capturing)
	}
	return clone
}

// statusReportingTaskWrapper reports running/completed/stopped/failed
// around Execute, and wraps Target so a true Check() is also reported
// as completed. Grounded on agent.py's StatusReportingTaskWrapper.
type statusReportingTaskWrapper struct {
	task.Wrapper
	agent *Agent
}

func (w *statusReportingTaskWrapper) Execute() error {
	name := w.Wrapper.Name()
	w.agent.push(TaskStatusUpdate{Task: name, Status: StatusRunning, Timestamp: now()})
	err := w.Wrapper.Execute()
	switch {
	case err == nil:
		w.agent.push(TaskStatusUpdate{Task: name, Status: StatusCompleted, Timestamp: now()})
	case xerrors.IsExcusable(err):
		w.agent.push(TaskStatusUpdate{Task: name, Status: StatusStopped, Timestamp: now()})
	default:
		w.agent.push(TaskLogUpdate{Task: name, Message: err.Error(), Timestamp: now()})
		w.agent.push(TaskStatusUpdate{Task: name, Status: StatusFailed, Timestamp: now()})
	}
	return err
}

func (w *statusReportingTaskWrapper) Target() condition.Condition {
	target := w.Wrapper.Target()
	if target == nil {
		return nil
	}
	return &statusReportingConditionWrapper{Wrapper: condition.Wrapper{Base: target}, agent: w.agent, taskName: w.Wrapper.Name()}
}

type statusReportingConditionWrapper struct {
	condition.Wrapper
	agent    *Agent
	taskName string
}

func (c *statusReportingConditionWrapper) Check() (bool, error) {
	completed, err := c.Wrapper.Check()
	if err == nil && completed {
		c.agent.push(TaskStatusUpdate{Task: c.taskName, Status: StatusCompleted, Timestamp: now()})
	}
	return completed, err
}

// logCapturingTaskWrapper installs a per-goroutine log sink for the
// duration of Execute so every slog record emitted by this task's
// execution (and nothing running concurrently on another goroutine) is
// forwarded as a TaskLogUpdate. Go has no per-OS-thread log handler the
// way the source's LogCapturingTaskWrapper installs one, but a task's
// Execute always runs to completion on a single goroutine, so a
// goroutine-id-keyed sink (see sinkBox) gives the same isolation.
// Grounded on agent.py's LogCapturingTaskWrapper.
type logCapturingTaskWrapper struct {
	task.Wrapper
	agent    *Agent
	taskName string
}

func (w *logCapturingTaskWrapper) Execute() error {
	sinkBox.Put(func(message string) {
		w.agent.push(TaskLogUpdate{Task: w.taskName, Message: message, Timestamp: now()})
	})
	defer sinkBox.Put(nil)
	return w.Wrapper.Execute()
}

// sinkBox holds the active log-forwarding callback for whichever
// goroutine is currently inside a logCapturingTaskWrapper.Execute.
var sinkBox = box.NewMulti(goroutineID)

// sinkHandler forwards every record to the calling goroutine's sink (if
// any) before passing it on to next.
type sinkHandler struct {
	next slog.Handler
}

// InstallSink wraps logger's handler so task executions can capture
// their own log output. Call once, during daemon startup, with the
// process's base logger.
func InstallSink(logger *slog.Logger) *slog.Logger {
	return slog.New(&sinkHandler{next: logger.Handler()})
}

func (h *sinkHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *sinkHandler) Handle(ctx context.Context, r slog.Record) error {
	if fn, ok := sinkBox.Get().(func(string)); ok && fn != nil {
		fn(r.Message)
	}
	return h.next.Handle(ctx, r)
}

func (h *sinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sinkHandler{next: h.next.WithAttrs(attrs)}
}

func (h *sinkHandler) WithGroup(name string) slog.Handler {
	return &sinkHandler{next: h.next.WithGroup(name)}
}

func goroutineID() any {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := parseGoroutineHeader(string(buf[:n]))
	return fields
}

func parseGoroutineHeader(header string) string {
	const prefix = "goroutine "
	if len(header) < len(prefix) || header[:len(prefix)] != prefix {
		return header
	}
	rest := header[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ' ' {
			return rest[:i]
		}
	}
	return rest
}

func now() time.Time { return time.Now() }
