package consumer

import (
	"testing"
	"time"

	"github.com/edera-run/workflowd/internal/corelib/resilience"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// A limiter with no capacity and no refill must deny every Push before
// ever touching the underlying connection, so this never dials out.
func TestNATSPushDeniedByExhaustedLimiter(t *testing.T) {
	limited := &NATS{Subject: "workflowd.updates"}
	limited.limiter = resilience.NewRateLimiter(0, 0, time.Second, 10)

	err := limited.Push("element")
	if _, ok := err.(*xerrors.ConsumptionError); !ok {
		t.Fatalf("expected *xerrors.ConsumptionError, got %T: %v", err, err)
	}
}

func TestNewNATSWiresRateLimiter(t *testing.T) {
	n := NewNATS(nil, "workflowd.updates", 1, 1)
	if n.limiter == nil {
		t.Fatalf("NewNATS should wire a rate limiter")
	}
	if n.Subject != "workflowd.updates" {
		t.Fatalf("Subject = %q", n.Subject)
	}
}
