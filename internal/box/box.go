// Package box provides primitive value containers, grounded on
// original_source/edera/helpers/box.py and boxes.py. A box starts
// empty (holds nil).
package box

import "sync"

// Box stores a single value at a time.
type Box interface {
	Get() any
	Put(value any)
}

// Simple is a straightforward mutex-guarded Box, grounded on
// helpers/boxes.py's SimpleBox.
type Simple struct {
	mu    sync.Mutex
	value any
}

func NewSimple() *Simple { return &Simple{} }

func (b *Simple) Get() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

func (b *Simple) Put(value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = value
}

// Multi selects its compartment by calling Selector, grounded on
// helpers/boxes.py's MultiBox (there, a per-fork/thread variable; here,
// any caller-supplied key function, typically a goroutine-local id
// obtained from context).
type Multi struct {
	mu       sync.Mutex
	Selector func() any
	values   map[any]any
}

func NewMulti(selector func() any) *Multi {
	return &Multi{Selector: selector, values: make(map[any]any)}
}

func (b *Multi) Get() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.values[b.Selector()]
}

func (b *Multi) Put(value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := b.Selector()
	if value == nil {
		delete(b.values, key)
		return
	}
	b.values[key] = value
}

// Shared is a single-producer-multiple-consumers box safe to share
// between goroutines (the Python original shares it between forks via a
// multiprocessing.Queue of size 1; here a size-1 channel gives the same
// drain-then-put semantics within one process).
type Shared struct {
	ch chan any
}

func NewShared() *Shared {
	s := &Shared{ch: make(chan any, 1)}
	s.ch <- nil
	return s
}

func (b *Shared) Get() any {
	value := <-b.ch
	b.ch <- value
	return value
}

func (b *Shared) Put(value any) {
	<-b.ch
	b.ch <- value
}
