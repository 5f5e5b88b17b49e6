package xerrors

import (
	"errors"
	"testing"
)

func TestIsExcusableDetectsMarkedErrors(t *testing.T) {
	if !IsExcusable(NewExcusable("transient")) {
		t.Fatalf("NewExcusable should be reported excusable")
	}
	if !IsExcusable(&LockAcquisitionError{Key: "x"}) {
		t.Fatalf("LockAcquisitionError should be excusable")
	}
	if IsExcusable(&TargetVerificationError{Task: "T"}) {
		t.Fatalf("TargetVerificationError should not be excusable")
	}
	if IsExcusable(errors.New("plain")) {
		t.Fatalf("a plain error should not be excusable")
	}
}

func TestIsExcusableUnwrapsChain(t *testing.T) {
	wrapped := &StorageOperationError{Op: "put", Err: &LockAcquisitionError{Key: "k"}}
	if !IsExcusable(wrapped) {
		t.Fatalf("IsExcusable should see through Unwrap to an excusable cause")
	}
}

func TestStorageOperationErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := &StorageOperationError{Op: "put", Err: cause}
	if errors.Unwrap(err) != cause {
		t.Fatalf("StorageOperationError should unwrap to its cause")
	}
}
