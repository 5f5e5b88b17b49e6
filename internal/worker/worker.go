// Package worker implements the two worker tiers a MasterSlaveInvoker
// replicates: Thread (goroutine isolation) and Process (genuine OS
// process isolation, via os/exec). Grounded on original_source/edera/
// worker.py and edera/workers/{thread,process}.py.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edera-run/workflowd/internal/flag"
	"github.com/edera-run/workflowd/internal/routine"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// Worker is a named unit of work that runs in a separate thread,
// process, or host. The action passed to a constructor should raise
// context.Canceled to terminate intentionally (the SystemExit
// equivalent), return an excusable error to stop cooperatively, or
// return any other error to fail.
type Worker interface {
	Name() string
	Start()
	// Join waits up to timeout for the worker to finish.
	Join(timeout time.Duration)
	// Kill forces the worker to stop being considered Alive. For a
	// Thread this cannot preempt a running goroutine (Go has no such
	// primitive); it only cancels the context and flips Alive() false,
	// matching the Python original's own best-effort kill semantics.
	Kill()
	Alive() bool
	Failed() bool
	Stopped() bool
}

// Thread runs action in its own goroutine, grounded on
// edera/workers/thread.py.
type Thread struct {
	name   string
	action routine.Step

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	killed   atomic.Bool
	failFlag *flag.InterThread
	stopFlag *flag.InterThread
}

// NewThread builds a Thread worker that has not yet been started.
func NewThread(name string, action routine.Step) *Thread {
	return &Thread{
		name:     name,
		action:   action,
		failFlag: flag.NewInterThread(),
		stopFlag: flag.NewInterThread(),
	}
}

func (t *Thread) Name() string { return t.name }

func (t *Thread) Start() {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		panic("worker: Thread " + t.name + " already started")
	}
	t.started = true
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	t.mu.Unlock()
	go func() {
		defer close(t.done)
		err := t.action(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			slog.Debug("worker terminated", "worker", t.name, "error", err)
		case xerrors.IsExcusable(err):
			slog.Info("worker stopped", "worker", t.name, "error", err)
			t.stopFlag.Up()
		default:
			slog.Error("worker failed", "worker", t.name, "error", err)
			t.failFlag.Up()
		}
	}()
}

func (t *Thread) Join(timeout time.Duration) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done == nil {
		panic("worker: Thread " + t.name + " not started")
	}
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

func (t *Thread) Kill() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel == nil {
		panic("worker: Thread " + t.name + " not started")
	}
	t.killed.Store(true)
	cancel()
}

func (t *Thread) Alive() bool {
	if t.killed.Load() {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *Thread) Failed() bool  { return t.failFlag.Raised() }
func (t *Thread) Stopped() bool { return t.stopFlag.Raised() }

// ExitStopped is the exit code a Process branch uses to signal an
// excusable stop rather than a crash: any other non-zero code is
// treated as Failed. A re-exec'd child reports an xerrors.Excusable
// top-level error by exiting with this code.
const ExitStopped = 75

// Process runs action in a re-exec'd OS subprocess: argv is appended to
// the current executable's path, and the child interprets it on its
// own; action itself is not run in the child. Grounded on edera/workers/process.py; genuine process
// isolation in Go means re-exec rather than fork, since Go's runtime
// does not support forking a multi-threaded process safely.
type Process struct {
	name string
	argv []string
	env  []string

	mu       sync.Mutex
	started  bool
	cmd      *exec.Cmd
	done     chan struct{}
	killed   atomic.Bool
	failFlag *flag.InterProcess
	stopFlag *flag.InterProcess
}

// NewProcess builds a Process worker that re-execs os.Args[0] with argv
// when started. env, if non-nil, replaces the child's environment
// entirely (nil inherits the parent's).
func NewProcess(name string, argv []string, env []string) *Process {
	return &Process{
		name:     name,
		argv:     argv,
		env:      env,
		failFlag: flag.NewInterProcess(),
		stopFlag: flag.NewInterProcess(),
	}
}

func (p *Process) Name() string { return p.name }

func (p *Process) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		panic("worker: Process " + p.name + " already started")
	}
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	cmd := exec.Command(exe, p.argv...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if p.env != nil {
		cmd.Env = p.env
	}
	if startErr := cmd.Start(); startErr != nil {
		slog.Error("worker failed to start", "worker", p.name, "error", startErr)
		p.failFlag.Up()
		p.done = make(chan struct{})
		close(p.done)
		p.started = true
		p.mu.Unlock()
		return
	}
	p.cmd = cmd
	p.done = make(chan struct{})
	p.started = true
	p.mu.Unlock()
	go func() {
		defer close(p.done)
		waitErr := cmd.Wait()
		code := cmd.ProcessState.ExitCode()
		switch {
		case waitErr == nil && code == 0:
		case code == ExitStopped:
			slog.Info("worker stopped", "worker", p.name, "exit_code", code)
			p.stopFlag.Up()
		default:
			slog.Error("worker failed", "worker", p.name, "exit_code", code, "error", waitErr)
			p.failFlag.Up()
		}
	}()
}

func (p *Process) Join(timeout time.Duration) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		panic("worker: Process " + p.name + " not started")
	}
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

func (p *Process) Kill() {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	p.killed.Store(true)
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

func (p *Process) Alive() bool {
	if p.killed.Load() {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Process) Failed() bool  { return p.failFlag.Raised() }
func (p *Process) Stopped() bool { return p.stopFlag.Raised() }
