package flag

import "testing"

func TestInterThreadStartsLowered(t *testing.T) {
	f := NewInterThread()
	if f.Raised() {
		t.Fatalf("a fresh flag should start lowered")
	}
	f.Up()
	if !f.Raised() {
		t.Fatalf("Up() should raise the flag")
	}
	f.Down()
	if f.Raised() {
		t.Fatalf("Down() should lower the flag")
	}
}

func TestInterProcessStartsLowered(t *testing.T) {
	f := NewInterProcess()
	if f.Raised() {
		t.Fatalf("a fresh flag should start lowered")
	}
	f.Up()
	if !f.Raised() {
		t.Fatalf("Up() should raise the flag")
	}
}
