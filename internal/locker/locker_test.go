package locker

import "testing"

func TestProcessLockerExcludesConcurrentHolders(t *testing.T) {
	p := NewProcess()
	lock, err := p.Lock("target", nil)
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	if _, err := p.Lock("target", nil); err == nil {
		t.Fatalf("second Lock on the same key should fail while held")
	}
	lock.Unlock()
	if _, err := p.Lock("target", nil); err != nil {
		t.Fatalf("Lock after Unlock should succeed, got %v", err)
	}
}

func TestProcessLockerUnlockIsIdempotent(t *testing.T) {
	p := NewProcess()
	lock, _ := p.Lock("k", nil)
	lock.Unlock()
	lock.Unlock() // must not panic or double-release someone else's lock
	if _, err := p.Lock("k", nil); err != nil {
		t.Fatalf("Lock should succeed after idempotent unlock, got %v", err)
	}
}

func TestProcessLockerIndependentKeys(t *testing.T) {
	p := NewProcess()
	if _, err := p.Lock("a", nil); err != nil {
		t.Fatalf("Lock(a): %v", err)
	}
	if _, err := p.Lock("b", nil); err != nil {
		t.Fatalf("Lock(b) should not be blocked by a held lock on a: %v", err)
	}
}

func TestCascadeAcquiresAllSublockersInOrder(t *testing.T) {
	a := NewProcess()
	b := NewProcess()
	c := NewCascade(a, b)

	lock, err := c.Lock("k", nil)
	if err != nil {
		t.Fatalf("Cascade.Lock: %v", err)
	}
	if _, err := a.Lock("k", nil); err == nil {
		t.Fatalf("cascade should have acquired sublocker a")
	}
	if _, err := b.Lock("k", nil); err == nil {
		t.Fatalf("cascade should have acquired sublocker b")
	}
	lock.Unlock()
	if _, err := a.Lock("k", nil); err != nil {
		t.Fatalf("cascade Unlock should release sublocker a, got %v", err)
	}
	if _, err := b.Lock("k", nil); err != nil {
		t.Fatalf("cascade Unlock should release sublocker b, got %v", err)
	}
}

func TestCascadeUnwindsOnPartialFailure(t *testing.T) {
	a := NewProcess()
	b := NewProcess()
	// Pre-lock b so the cascade fails on its second sublocker.
	preHeld, _ := b.Lock("k", nil)
	defer preHeld.Unlock()

	c := NewCascade(a, b)
	if _, err := c.Lock("k", nil); err == nil {
		t.Fatalf("cascade should fail when a sublocker is already held")
	}
	// a must have been released again since the cascade unwound.
	if _, err := a.Lock("k", nil); err != nil {
		t.Fatalf("cascade should unwind and release sublocker a on failure, got %v", err)
	}
}
