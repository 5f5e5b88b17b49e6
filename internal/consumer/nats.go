package consumer

import (
	"context"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/edera-run/workflowd/internal/corelib/natsctx"
	"github.com/edera-run/workflowd/internal/corelib/resilience"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// NATS pushes elements onto a NATS subject instead of an in-process
// buffer, letting the consumer side (Subscribe) live in a different
// process or host than the Agent doing the pushing - the genuinely
// distributed counterpart to Bounded, for daemon deployments where the
// watcher isn't colocated with every executor. Not present in the
// distillation source (which assumes a single host); wired here because
// the NATS client is part of this project's domain stack and a
// multi-host deployment is the natural next step once updates travel
// through a Consumer interface instead of a shared in-memory queue.
//
// Push is gated by a token-bucket RateLimiter (internal/corelib/
// resilience), the same limiter the teacher's domain stack uses to keep
// a burst of updates from outrunning whatever is draining Subject on
// the other end.
type NATS struct {
	Conn    *nats.Conn
	Subject string

	limiter *resilience.RateLimiter
}

// NewNATS wires a NATS consumer whose Push is capped at fillRate
// elements/second with burstCapacity of headroom.
func NewNATS(conn *nats.Conn, subject string, burstCapacity int64, fillRate float64) *NATS {
	return &NATS{
		Conn:    conn,
		Subject: subject,
		limiter: resilience.NewRateLimiter(burstCapacity, fillRate, time.Second, burstCapacity*10),
	}
}

var errNATSRateLimited = rateLimitedError{}

type rateLimitedError struct{}

func (rateLimitedError) Error() string { return "nats push rate limit exceeded" }

func (n *NATS) Push(element string) error {
	if n.limiter != nil && !n.limiter.Allow() {
		return &xerrors.ConsumptionError{Err: errNATSRateLimited}
	}
	if err := natsctx.Publish(context.Background(), n.Conn, n.Subject, []byte(element)); err != nil {
		return &xerrors.ConsumptionError{Err: err}
	}
	return nil
}

// Subscribe forwards every message received on Subject to handler,
// returning the underlying subscription so the caller can Unsubscribe.
func (n *NATS) Subscribe(handler func(element string) error) (*nats.Subscription, error) {
	return natsctx.Subscribe(n.Conn, n.Subject, func(_ context.Context, msg *nats.Msg) {
		_ = handler(string(msg.Data))
	})
}
