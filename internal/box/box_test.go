package box

import "testing"

func TestSimpleBoxStartsEmpty(t *testing.T) {
	b := NewSimple()
	if b.Get() != nil {
		t.Fatalf("a fresh Simple box should hold nil")
	}
	b.Put("value")
	if b.Get() != "value" {
		t.Fatalf("Get() = %v, want value", b.Get())
	}
}

func TestMultiBoxSelectsCompartmentByKey(t *testing.T) {
	var current any = "a"
	b := NewMulti(func() any { return current })
	b.Put("red")
	current = "b"
	b.Put("blue")
	current = "a"
	if b.Get() != "red" {
		t.Fatalf("compartment a = %v, want red", b.Get())
	}
	current = "b"
	if b.Get() != "blue" {
		t.Fatalf("compartment b = %v, want blue", b.Get())
	}
}

func TestMultiBoxPutNilDeletesCompartment(t *testing.T) {
	var current any = "a"
	b := NewMulti(func() any { return current })
	b.Put("red")
	b.Put(nil)
	if b.Get() != nil {
		t.Fatalf("Put(nil) should clear the compartment, got %v", b.Get())
	}
}

func TestSharedBoxWritersOverwriteAndReadersPeek(t *testing.T) {
	b := NewShared()
	if b.Get() != nil {
		t.Fatalf("a fresh Shared box should hold nil")
	}
	b.Put(1)
	if b.Get() != 1 {
		t.Fatalf("Get() = %v, want 1", b.Get())
	}
	// Peek is non-destructive: a second read sees the same value.
	if b.Get() != 1 {
		t.Fatalf("second Get() should still return 1 (non-destructive peek)")
	}
	b.Put(2)
	if b.Get() != 2 {
		t.Fatalf("Put should overwrite the latest value, got %v", b.Get())
	}
}
