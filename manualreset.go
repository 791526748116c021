package asyncevents

import (
	"context"
	"sync/atomic"
	"time"
)

// ManualResetEvent is a broadcast latch. Once Set, every current and future
// waiter observes "signaled" until Reset swaps in a fresh generation.
//
// The event state is a single slot holding the current generation's
// completion; Set resolves it, Reset replaces a resolved generation with a
// pending one. All methods are safe for concurrent use.
type ManualResetEvent struct {
	gen atomic.Pointer[Completion[struct{}]]
}

var _ Event = (*ManualResetEvent)(nil)

// NewManualResetEvent creates a ManualResetEvent in the given initial state.
func NewManualResetEvent(signaled bool) *ManualResetEvent {
	e := &ManualResetEvent{}
	if signaled {
		e.gen.Store(CompletedCompletion(struct{}{}))
	} else {
		e.gen.Store(NewCompletion[struct{}]())
	}
	return e
}

// Set signals the current generation. It is idempotent: a second Set before
// a Reset is a no-op. With Deferred, the wakeup is dispatched to a
// background goroutine instead of happening before Set returns.
func (e *ManualResetEvent) Set(opts ...SetOption) {
	cfg := applySetOptions(opts)
	gen := e.gen.Load()
	if cfg.deferred {
		go gen.Complete(struct{}{})
		return
	}
	gen.Complete(struct{}{})
}

// Reset atomically replaces a signaled generation with a fresh pending one.
// If the current generation has not been signaled, Reset does nothing.
// Concurrent Resets race on a compare-and-swap, so at most one fresh
// generation is installed per signaled one.
func (e *ManualResetEvent) Reset() {
	for {
		cur := e.gen.Load()
		if !cur.IsDone() {
			return
		}
		if e.gen.CompareAndSwap(cur, NewCompletion[struct{}]()) {
			return
		}
	}
}

// IsSet reports whether the current generation has been signaled.
func (e *ManualResetEvent) IsSet() bool {
	return e.gen.Load().IsDone()
}

// Wait blocks until the current generation is signaled or ctx is canceled.
func (e *ManualResetEvent) Wait(ctx context.Context) error {
	_, err := e.gen.Load().Await(ctx)
	return err
}

// WaitTimeout is Wait bounded by a timeout. It returns true if the event
// was signaled, false if the timeout elapsed first. A zero timeout is a
// non-blocking poll of the current state.
func (e *ManualResetEvent) WaitTimeout(ctx context.Context, timeout time.Duration) (bool, error) {
	_, ok, err := e.gen.Load().AwaitTimeout(ctx, timeout)
	return ok, err
}
