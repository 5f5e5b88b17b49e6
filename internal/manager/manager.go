// Package manager implements the context-manager-like Enter/Exit
// protocol executor.Managed wraps each task execution in, grounded on
// original_source/edera/manager.py and edera/managers/cascade.py.
package manager

import "sync"

// Manager brackets a unit of work: Enter prepares it, Exit releases
// whatever Enter acquired. A nil error from Enter guarantees Exit will
// eventually be called.
type Manager interface {
	Enter() error
	Exit() error
}

// Run brackets body between m.Enter and m.Exit, matching Python's
// `with m: body()`. body's error takes priority over Exit's.
func Run(m Manager, body func() error) error {
	if err := m.Enter(); err != nil {
		return err
	}
	bodyErr := body()
	exitErr := m.Exit()
	if bodyErr != nil {
		return bodyErr
	}
	return exitErr
}

// Cascade enters every sub-manager in order and exits them in reverse,
// unwinding partial entry if one fails midway. Grounded on
// edera/managers/cascade.py.
type Cascade struct {
	Managers []Manager

	mu      sync.Mutex
	entered []Manager
}

// NewCascade returns a Cascade over the given managers, entered/exited
// in the order given.
func NewCascade(managers ...Manager) *Cascade {
	return &Cascade{Managers: managers}
}

func (c *Cascade) Enter() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entered = nil
	for _, m := range c.Managers {
		if err := m.Enter(); err != nil {
			for i := len(c.entered) - 1; i >= 0; i-- {
				c.entered[i].Exit()
			}
			c.entered = nil
			return err
		}
		c.entered = append(c.entered, m)
	}
	return nil
}

func (c *Cascade) Exit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for i := len(c.entered) - 1; i >= 0; i-- {
		if err := c.entered[i].Exit(); err != nil && first == nil {
			first = err
		}
	}
	c.entered = nil
	return first
}
