package asyncevents

import (
	"context"
	"time"
)

// Event is the signaling surface shared by ManualResetEvent and
// AutoResetEvent.
type Event interface {
	// Set signals the event.
	Set(opts ...SetOption)

	// Wait blocks until the event is signaled or ctx is canceled.
	Wait(ctx context.Context) error

	// WaitTimeout is Wait bounded by a timeout; it returns false if the
	// timeout elapsed before the event was signaled.
	WaitTimeout(ctx context.Context, timeout time.Duration) (bool, error)
}

// Pump is the queue surface shared by MessagePump and DelegatePump.
type Pump interface {
	// Count returns the number of queued entries, including the one being
	// processed.
	Count() int

	// Drain blocks until the queue is empty or ctx is canceled.
	Drain(ctx context.Context) error

	// DrainDone returns a channel closed when the queue next becomes empty
	// (already closed if it is empty now).
	DrainDone() <-chan struct{}
}
