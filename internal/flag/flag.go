// Package flag provides raise/lower signaling primitives, grounded on
// original_source/edera/flag.py and edera/flags/*.py. A flag starts
// lowered; any number of users can raise or lower it concurrently.
package flag

import "sync/atomic"

// Flag is a shared boolean that can be concurrently raised and lowered.
type Flag interface {
	Up()
	Down()
	Raised() bool
}

// InterThread is safe to operate from multiple goroutines within the
// same process, grounded on edera/flags/interthread.py.
type InterThread struct {
	raised atomic.Bool
}

func NewInterThread() *InterThread { return &InterThread{} }

func (f *InterThread) Up()          { f.raised.Store(true) }
func (f *InterThread) Down()        { f.raised.Store(false) }
func (f *InterThread) Raised() bool { return f.raised.Load() }

// InterProcess backs edera/flags/interprocess.py's multiprocessing.Event,
// a loss-of-worker signal shared between a worker.Process's invoking
// goroutine and the subprocess's exit-code watcher: the watcher calls Up
// when the subprocess exits with a stop or failure code, regardless of
// which goroutine polls Raised. The underlying primitive is still an atomic flag since
// worker.Process communicates over os/exec's Wait rather than shared
// memory; it is distinct from InterThread only in its intended caller.
type InterProcess struct {
	raised atomic.Bool
}

func NewInterProcess() *InterProcess { return &InterProcess{} }

func (f *InterProcess) Up()          { f.raised.Store(true) }
func (f *InterProcess) Down()        { f.raised.Store(false) }
func (f *InterProcess) Raised() bool { return f.raised.Load() }
