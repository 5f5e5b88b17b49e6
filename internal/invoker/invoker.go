// Package invoker implements the daemon's scheduling primitives:
// MasterSlave (run N named actions in parallel workers, waiting for
// them or killing them after an interruption timeout) and Persistent
// (call one action forever with a minimum delay between attempts).
// Grounded on original_source/edera/invoker.py and
// edera/invokers/{masterslave,persistent,multiprocess,multithreaded}.py.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/edera-run/workflowd/internal/routine"
	"github.com/edera-run/workflowd/internal/worker"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// tracer mirrors the teacher's DAGEngine tracer (services/orchestrator/
// dag_engine.go), acquired inline like resilience.Retry's own meter
// rather than threaded through every Invoker's fields.
var tracer = otel.Tracer("swarm-go")

// Invoker invokes something when called; ctx cancellation is the
// interruption signal.
type Invoker interface {
	Invoke(ctx context.Context) error
}

// Func adapts a plain function to an Invoker.
type Func func(ctx context.Context) error

func (f Func) Invoke(ctx context.Context) error { return f(ctx) }

// singleJoinAttemptTimeout bounds how long MasterSlave waits, per round,
// for all of its slaves combined before re-checking ctx.
const singleJoinAttemptTimeout = 250 * time.Millisecond

// MasterSlave runs a named set of actions as workers in parallel and
// waits for all of them to finish, killing survivors once
// InterruptionTimeout has elapsed since ctx was cancelled. Grounded on
// edera/invokers/masterslave.py; NewWorker selects the isolation tier
// (worker.NewThread for a MultiThreaded invoker, worker.NewProcess for a
// MultiProcess invoker), matching the source's cargo-based
// parameterization over (Worker, Flag).
type MasterSlave struct {
	Actions             map[string]routine.Step
	NewWorker           func(name string, action routine.Step) worker.Worker
	InterruptionTimeout time.Duration // default 1 minute
}

func (m MasterSlave) Invoke(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "masterslave.invoke", trace.WithAttributes(attribute.Int("slave_count", len(m.Actions))))
	defer span.End()

	meter := otel.Meter("swarm-go")
	failedCounter, _ := meter.Int64Counter("swarm_invoker_masterslave_failed_total")
	stoppedCounter, _ := meter.Int64Counter("swarm_invoker_masterslave_stopped_total")

	timeout := m.InterruptionTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	names := make([]string, 0, len(m.Actions))
	for name := range m.Actions {
		names = append(names, name)
	}
	sort.Strings(names)

	workers := make([]worker.Worker, len(names))
	for i, name := range names {
		workers[i] = m.NewWorker(name, m.Actions[name])
	}

	slog.Debug("starting slaves", "count", len(workers))
	for _, w := range workers {
		w.Start()
	}

	var interrupted bool
	var interruptionTime time.Time
	var killing bool
	perSlaveTimeout := singleJoinAttemptTimeout
	if len(workers) > 0 {
		perSlaveTimeout = singleJoinAttemptTimeout / time.Duration(len(workers))
	}
	for {
		allDone := true
		for _, w := range workers {
			w.Join(perSlaveTimeout)
			if w.Alive() {
				allDone = false
			}
		}
		if !interrupted {
			if err := routine.Checkpoint(ctx); err != nil {
				slog.Debug("master-slave invoker interrupted")
				interrupted = true
				interruptionTime = time.Now()
			}
		}
		if allDone {
			break
		}
		if interrupted && time.Since(interruptionTime) > timeout {
			killing = true
			break
		}
	}

	if killing {
		slog.Debug("killing slaves")
		for _, w := range workers {
			if w.Alive() {
				w.Kill()
			}
		}
	}

	if interrupted {
		span.RecordError(ctx.Err())
		return ctx.Err()
	}

	var failed, stopped []string
	for _, w := range workers {
		if w.Failed() {
			failed = append(failed, w.Name())
		}
		if w.Stopped() {
			stopped = append(stopped, w.Name())
		}
	}
	if len(failed) > 0 {
		failedCounter.Add(ctx, int64(len(failed)))
		err := &xerrors.MasterSlaveInvocationError{Failed: failed}
		span.RecordError(err)
		return err
	}
	if len(stopped) > 0 {
		stoppedCounter.Add(ctx, int64(len(stopped)))
		span.AddEvent("stopped")
		return &xerrors.ExcusableMasterSlaveInvocationError{Stopped: stopped}
	}
	return nil
}

// Replicate builds the named-action map for count identical workers
// sharing one action, named "<prefix><n>" (1-based).
func Replicate(action routine.Step, count int, prefix string) map[string]routine.Step {
	if prefix == "" {
		prefix = "W-"
	}
	out := make(map[string]routine.Step, count)
	for i := 1; i <= count; i++ {
		out[fmt.Sprintf("%s%d", prefix, i)] = action
	}
	return out
}

// Persistent calls Action forever, waiting at least Delay between the
// start of consecutive attempts, logging and swallowing every
// non-cancellation error (excusable ones at INFO, others at ERROR).
// Grounded on edera/invokers/persistent.py.
type Persistent struct {
	Action routine.Step
	Delay  time.Duration // default 1 minute
}

func (p Persistent) Invoke(ctx context.Context) error {
	meter := otel.Meter("swarm-go")
	attemptCounter, _ := meter.Int64Counter("swarm_invoker_persistent_attempts_total")
	failCounter, _ := meter.Int64Counter("swarm_invoker_persistent_failures_total")

	delay := p.Delay
	if delay <= 0 {
		delay = time.Minute
	}
	for {
		if err := routine.Checkpoint(ctx); err != nil {
			slog.Debug("persistent invoker interrupted", "error", err)
			return err
		}
		attemptCtx, span := tracer.Start(ctx, "persistent.invoke.attempt")
		attemptCounter.Add(attemptCtx, 1)
		start := time.Now()
		err := p.Action(attemptCtx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			slog.Debug("persistent invoker interrupted", "error", err)
			span.End()
			return err
		case xerrors.IsExcusable(err):
			slog.Info("attempt stopped", "error", err)
			span.AddEvent("stopped")
		default:
			slog.Error("attempt failed", "error", err)
			failCounter.Add(attemptCtx, 1)
			span.RecordError(err)
		}
		span.End()
		elapsed := time.Since(start)
		if sleep := delay - elapsed; sleep > 0 {
			if err := routine.Sleep(ctx, sleep); err != nil {
				return err
			}
		}
	}
}
