// Package daemon assembles the builder/processor/executor pipeline and
// the worker-tier invokers into a long-running service: a set of
// modules (prelude/main/support), each scheduled per-tag, producing and
// running workflows forever until the context is cancelled. Grounded on
// original_source/edera/daemon/{daemon,module,modules,schedule}.py.
package daemon

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/edera-run/workflowd/internal/autotest"
	"github.com/edera-run/workflowd/internal/box"
	"github.com/edera-run/workflowd/internal/builder"
	"github.com/edera-run/workflowd/internal/consumer"
	"github.com/edera-run/workflowd/internal/executor"
	"github.com/edera-run/workflowd/internal/flag"
	"github.com/edera-run/workflowd/internal/invoker"
	"github.com/edera-run/workflowd/internal/locker"
	"github.com/edera-run/workflowd/internal/monitoring"
	"github.com/edera-run/workflowd/internal/partitioner"
	"github.com/edera-run/workflowd/internal/processors"
	"github.com/edera-run/workflowd/internal/routine"
	"github.com/edera-run/workflowd/internal/storage"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/worker"
	"github.com/edera-run/workflowd/internal/workflow"
)

// Module is one of the daemon's building blocks: it knows how to seed a
// root task for "now", and which tag/Schedule pairs its workflow should
// be split and run under. Grounded on edera/daemon/module.py.
type Module interface {
	Name() string
	// Scheduling maps tag to Schedule; the "" key is the untagged
	// subgraph's schedule.
	Scheduling() map[string]Schedule
	// Seed returns the root task to build this round, or a nil task (and
	// nil error) if there is nothing new to build yet.
	Seed(now time.Time) (task.Task, error)
}

// CronSeeded is implemented by a Module whose re-seeding should also be
// gated by a cron expression, layered on top of its Schedule's
// BuildingDelay rather than replacing it. Grounded on the teacher's
// cmd/workflowd/scheduler.go robfig/cron wiring, repurposed from
// HTTP-triggered workflow runs to module re-seeding.
type CronSeeded interface {
	CronSpec() string
}

// Autotester bundles the beans a test-projecting build needs: Cache is
// where autotest.Test results are registered, Selector decides which
// scenarios apply to which task, Partitioner groups conflict-free
// substitutions, and ColorBox is the shared box TaskSegregator steers
// environment-dependent resources through. A nil *Autotester on Daemon
// disables test-projection entirely. Grounded on
// edera/daemon/autotester.py's DaemonAutoTester.
type Autotester struct {
	Cache       storage.Storage
	Selector    autotest.TestSelector
	Partitioner partitioner.Partitioner[string, string]
	ColorBox    box.Box
}

func (a *Autotester) selector() autotest.TestSelector {
	if a.Selector != nil {
		return a.Selector
	}
	return autotest.AllTestSelector{}
}

func (a *Autotester) partitioner() partitioner.Partitioner[string, string] {
	if a.Partitioner != nil {
		return a.Partitioner
	}
	return partitioner.Greedy[string, string]{}
}

func (a *Autotester) colorBox() box.Box {
	if a.ColorBox != nil {
		return a.ColorBox
	}
	return box.NewSimple()
}

// Daemon wires Prelude (optional, run-to-completion), Main (required,
// persistent) and Support (optional, persistent) modules together with
// the shared beans every branch builds and executes against. Grounded
// on edera/daemon/daemon.py's Daemon.
type Daemon struct {
	Prelude Module
	Main    Module
	Support Module

	Cache      storage.Storage // target cache, see processors.TargetCacher
	Monitor    storage.Storage // monitoring.Agent/Watcher backing store
	Locker     locker.Locker
	Autotester *Autotester

	// MonitorConsumer, if set, is drained as a supervisor child
	// alongside the watcher (a monitoring.Agent built with
	// consumer.Basic needs no draining; one built with a
	// consumer.Bounded does).
	MonitorConsumer *consumer.Bounded
	WatcherInterval time.Duration // default 1s

	// NewWorker selects the worker tier every invoker in this daemon
	// uses. Defaults to worker.NewThread (single-process mode); pass a
	// worker.NewProcess-backed factory for genuine multi-process
	// isolation (the re-exec'd child only receives the argv the factory
	// gives it; cmd/workflowd does not set NewWorker and defines no
	// branch entrypoint for such a child).
	NewWorker func(name string, action routine.Step) worker.Worker

	// InterruptionTimeout bounds how long the supervisor waits for its
	// children after interruption before killing them; halved at each
	// nested tier (launcher, then tag branch). Default 1 minute.
	InterruptionTimeout time.Duration

	// InstanceID distinguishes this daemon's monitoring agents from any
	// other daemon sharing the same Monitor store (e.g. a second
	// replica, or a prior run's leftover checkpoints). Generated once
	// per Run if left empty.
	InstanceID string
}

func (d *Daemon) newWorker() func(name string, action routine.Step) worker.Worker {
	if d.NewWorker != nil {
		return d.NewWorker
	}
	return func(name string, action routine.Step) worker.Worker {
		return worker.NewThread(name, action)
	}
}

func (d *Daemon) timeout() time.Duration {
	if d.InterruptionTimeout > 0 {
		return d.InterruptionTimeout
	}
	return time.Minute
}

// Run starts the daemon's full supervision tree and blocks until ctx is
// cancelled or a non-excusable failure occurs anywhere in it. The
// caller installs the interruption flag by cancelling ctx (typically
// from signal.NotifyContext), matching the recast described in
// SPEC_FULL.md §4.R: Go's context cancellation stands in for the
// source's process-wide interruption flag. Grounded on
// edera/daemon/daemon.py's Daemon.run.
func (d *Daemon) Run(ctx context.Context) error {
	if d.Main == nil {
		return fmt.Errorf("daemon: Main module is required")
	}
	if d.InstanceID == "" {
		d.InstanceID = uuid.NewString()
	}
	watcherInterval := d.WatcherInterval
	if watcherInterval <= 0 {
		watcherInterval = time.Second
	}

	children := map[string]routine.Step{
		"watcher": func(ctx context.Context) error {
			w := &monitoring.Watcher{Monitor: d.Monitor}
			return w.Run(ctx, watcherInterval)
		},
		"launcher-main": d.launcherStep("main", d.Prelude, d.Main),
	}
	if d.Support != nil {
		children["launcher-support"] = d.launcherStep("support", nil, d.Support)
	}
	if d.MonitorConsumer != nil {
		children["consumer"] = d.MonitorConsumer.Drain
	}

	supervisor := invoker.MasterSlave{
		Actions:             children,
		NewWorker:           d.newWorker(),
		InterruptionTimeout: d.timeout(),
	}
	return supervisor.Invoke(ctx)
}

// launcherStep runs gate's branches to completion (if gate is non-nil),
// then runs mod's branches forever, one MultiProcessInvoker-equivalent
// per tag. Grounded on daemon.py's launcher, folding the prelude-gates-
// main sequencing (§4.D startup step 5) into the main launcher rather
// than running it as an independent sibling, since nothing else in the
// supervision tree depends on the prelude's tag branches individually.
func (d *Daemon) launcherStep(label string, gate, mod Module) routine.Step {
	return func(ctx context.Context) error {
		if gate != nil {
			if err := d.runLauncherTags(ctx, label+"/prelude", gate, true); err != nil {
				return err
			}
		}
		return d.runLauncherTags(ctx, label, mod, false)
	}
}

func (d *Daemon) runLauncherTags(ctx context.Context, label string, mod Module, stopAfterFirstSuccess bool) error {
	scheduling := mod.Scheduling()
	if len(scheduling) == 0 {
		scheduling = map[string]Schedule{"": DefaultSchedule()}
	}
	tags := make([]string, 0, len(scheduling))
	for tag := range scheduling {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	branches := make(map[string]routine.Step, len(tags))
	for _, tag := range tags {
		sched := scheduling[tag].normalized()
		name := label + "/" + tagLabel(tag)
		if stopAfterFirstSuccess {
			branches[name] = d.preludeBranch(mod, tag, sched)
		} else {
			branches[name] = d.persistentBranch(mod, tag, sched)
		}
	}

	launcher := invoker.MasterSlave{
		Actions:             branches,
		NewWorker:           d.newWorker(),
		InterruptionTimeout: d.timeout() / 2,
	}
	return launcher.Invoke(ctx)
}

func tagLabel(tag string) string {
	if tag == "" {
		return "default"
	}
	return tag
}

// persistentBranch is a tag branch that builds and executes forever:
// one builder worker running PersistentInvoker(build, buildingDelay)
// and Executors executor workers running
// PersistentInvoker(execute, executionDelay), all sharing one
// box.Shared hand-off. Grounded on daemon.py's branch, §4.D step 4.
func (d *Daemon) persistentBranch(mod Module, tag string, sched Schedule) routine.Step {
	return func(ctx context.Context) error {
		shared := box.NewShared()
		build := d.buildAction(mod, tag, sched, shared)
		_, execute := d.executeAction(mod, tag, shared)

		actions := map[string]routine.Step{
			"builder": invoker.Persistent{Action: build, Delay: sched.BuildingDelay}.Invoke,
		}
		for i := 1; i <= sched.Executors; i++ {
			actions[fmt.Sprintf("executor-%d", i)] = invoker.Persistent{Action: execute, Delay: sched.ExecutionDelay}.Invoke
		}
		branch := invoker.MasterSlave{
			Actions:             actions,
			NewWorker:           d.newWorker(),
			InterruptionTimeout: d.timeout() / 4,
		}
		return branch.Invoke(ctx)
	}
}

// preludeBranch is a tag branch that stops as soon as one execute
// attempt completes a full, successful run, matching §4.D step 5's
// completion flag. Builder and executor each loop on their own delay
// until that flag is raised or ctx is cancelled.
func (d *Daemon) preludeBranch(mod Module, tag string, sched Schedule) routine.Step {
	return func(ctx context.Context) error {
		shared := box.NewShared()
		build := d.buildAction(mod, tag, sched, shared)
		ranFlag, execute := d.executeAction(mod, tag, shared)
		done := flag.NewInterThread()

		actions := map[string]routine.Step{
			"builder": loopUntil(done, sched.BuildingDelay, build),
			"executor": loopUntil(done, sched.ExecutionDelay, func(ctx context.Context) error {
				if err := execute(ctx); err != nil {
					return err
				}
				if ranFlag.Raised() {
					done.Up()
				}
				return nil
			}),
		}
		branch := invoker.MasterSlave{
			Actions:             actions,
			NewWorker:           d.newWorker(),
			InterruptionTimeout: d.timeout() / 4,
		}
		return branch.Invoke(ctx)
	}
}

// loopUntil repeats action, waiting at least delay between the start of
// consecutive attempts, until done is raised or ctx is cancelled.
func loopUntil(done *flag.InterThread, delay time.Duration, action routine.Step) routine.Step {
	return func(ctx context.Context) error {
		for !done.Raised() {
			if err := routine.Checkpoint(ctx); err != nil {
				return err
			}
			start := time.Now()
			if err := action(ctx); err != nil {
				return err
			}
			if sleep := delay - time.Since(start); sleep > 0 {
				if err := routine.Sleep(ctx, sleep); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// buildAction runs one build-step attempt (§4.D "Build step"): seed,
// build, test-project (main module only, if autotesting is enabled),
// preprocess, tag-filter, postprocess, then hand off to shared. A nil
// seed (nothing new to build) and a cron gate that isn't due both yield
// a quiet no-op, not an error.
func (d *Daemon) buildAction(mod Module, tag string, sched Schedule, shared *box.Shared) routine.Step {
	var gate *cronGate
	testify := d.Autotester != nil && mod == d.Main

	return func(ctx context.Context) error {
		now := time.Now()
		if cronMod, ok := mod.(CronSeeded); ok {
			if gate == nil {
				g, err := newCronGate(cronMod.CronSpec())
				if err != nil {
					return err
				}
				gate = g
			}
			if !gate.ready(now) {
				return nil
			}
		}

		root, err := mod.Seed(now)
		if err != nil {
			return err
		}
		if root == nil {
			return nil
		}

		wf := builder.Build(root)

		if testify {
			at := d.Autotester
			if err := processors.Pipeline(wf,
				processors.WorkflowTestifier{Cache: at.Cache, Selector: at.selector(), Partitioner: at.partitioner()},
				processors.TaskSegregator{Box: at.colorBox()},
			); err != nil {
				return err
			}
		}

		if err := processors.Pipeline(wf,
			processors.TaskFreezer{},
			processors.WorkflowNormalizer{},
		); err != nil {
			return err
		}
		if err := processors.Pipeline(wf, processors.TagFilter{Tag: tag}); err != nil {
			return err
		}
		if err := processors.Pipeline(wf,
			processors.TargetCacher{Cache: d.Cache},
			processors.WorkflowTrimmer{},
			processors.TargetPostChecker{},
			processors.TargetLocker{Locker: d.Locker},
			processors.TaskRanker{},
		); err != nil {
			return err
		}

		shared.Put(wf)
		return nil
	}
}

// executeAction reads (without removing) the workflow in shared and runs it through a
// monitoring-wrapped executor, registering one agent per tag branch. An
// empty box (nothing built yet) is a quiet no-op. The returned flag is
// raised for the duration right after a step in which a workflow was
// actually executed (as opposed to a no-op round), for preludeBranch's
// completion check; callers that don't need it may ignore it.
func (d *Daemon) executeAction(mod Module, tag string, shared *box.Shared) (*flag.InterThread, routine.Step) {
	agent := monitoring.NewAgent(fmt.Sprintf("%s/%s@%s", mod.Name(), tagLabel(tag), d.InstanceID), d.Monitor)
	registered := false
	ex := executor.Monitoring{Executor: executor.Basic{}, Agent: agent}
	ran := flag.NewInterThread()

	step := func(ctx context.Context) error {
		ran.Down()
		if !registered {
			if err := agent.Register(); err != nil {
				return err
			}
			registered = true
		}
		wf, _ := shared.Get().(*workflow.Workflow)
		if wf == nil {
			return nil
		}
		err := ex.Execute(ctx, wf)
		if err == nil {
			ran.Up()
		}
		return err
	}
	return ran, step
}
