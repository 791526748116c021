package asyncevents

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	waiterPending int32 = iota
	waiterReleased
	waiterAbandoned
)

// waiter is one queued party on an AutoResetEvent. Its claim is terminal:
// either a Set releases it, or its own timeout/cancellation abandons it.
// An abandoned waiter stays in the queue until a Set reaches it; the Set
// then passes the release on to the next waiter, so no signal is lost.
type waiter struct {
	state atomic.Int32
	done  chan struct{}
}

func (w *waiter) release() bool {
	return w.state.CompareAndSwap(waiterPending, waiterReleased)
}

func (w *waiter) abandon() bool {
	return w.state.CompareAndSwap(waiterPending, waiterAbandoned)
}

// AutoResetEvent is a single-release gate. Each Set releases exactly one
// waiter, in strict FIFO enqueue order; with no waiters queued, one pending
// signal is remembered and consumed by the next Wait.
//
// The signaled flag and the waiter queue are mutually exclusive: the flag
// is only set while the queue is empty, and both are only touched under one
// mutex. All methods are safe for concurrent use.
type AutoResetEvent struct {
	mu       sync.Mutex
	signaled bool
	waiters  []*waiter
}

var _ Event = (*AutoResetEvent)(nil)

// NewAutoResetEvent creates an unsignaled AutoResetEvent.
func NewAutoResetEvent() *AutoResetEvent {
	return &AutoResetEvent{}
}

// Set releases the oldest queued waiter, or remembers one pending signal if
// nobody is waiting. Waiters that already abandoned their slot (timed out
// or canceled) are skipped, forwarding the release to the next in line.
// With Deferred, the winning waiter's wakeup is dispatched to a background
// goroutine; the dequeue and flag update still happen before Set returns.
func (e *AutoResetEvent) Set(opts ...SetOption) {
	cfg := applySetOptions(opts)
	e.mu.Lock()
	for len(e.waiters) > 0 {
		w := e.waiters[0]
		e.waiters[0] = nil
		e.waiters = e.waiters[1:]
		if len(e.waiters) == 0 {
			e.waiters = nil
		}
		if !w.release() {
			// Abandoned; its release belongs to the next waiter.
			continue
		}
		e.mu.Unlock()
		if cfg.deferred {
			go close(w.done)
		} else {
			close(w.done)
		}
		return
	}
	e.signaled = true
	e.mu.Unlock()
}

// Wait blocks until this waiter receives a release, consuming either the
// remembered signal or a future Set, in FIFO order behind earlier waiters.
func (e *AutoResetEvent) Wait(ctx context.Context) error {
	_, err := e.WaitTimeout(ctx, Forever)
	return err
}

// WaitTimeout is Wait bounded by a timeout. It returns true if this waiter
// consumed a signal, false if the timeout elapsed first. A zero timeout is
// a non-blocking poll that only consumes an already-remembered signal.
//
// A waiter that times out or is canceled cannot be removed from the middle
// of the FIFO queue; it abandons its slot instead, and the Set that
// eventually reaches the slot forwards the release to the next waiter. If
// a release lands in the same instant the timeout does, the release is fed
// back through Set so it is not swallowed.
func (e *AutoResetEvent) WaitTimeout(ctx context.Context, timeout time.Duration) (bool, error) {
	if err := validTimeout(timeout); err != nil {
		return false, err
	}
	ctx = orBackground(ctx)
	if err := ctx.Err(); err != nil {
		return false, err
	}

	e.mu.Lock()
	if e.signaled {
		e.signaled = false
		e.mu.Unlock()
		return true, nil
	}
	if timeout == 0 {
		e.mu.Unlock()
		return false, nil
	}
	w := &waiter{done: make(chan struct{})}
	e.waiters = append(e.waiters, w)
	e.mu.Unlock()

	if timeout == Forever {
		if ctx.Done() == nil {
			<-w.done
			return true, nil
		}
		select {
		case <-w.done:
			return true, nil
		case <-ctx.Done():
			return false, e.lose(w, ctx.Err())
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.done:
		return true, nil
	case <-ctx.Done():
		return false, e.lose(w, ctx.Err())
	case <-timer.C:
		// The release may have landed in the same instant; prefer it.
		select {
		case <-w.done:
			return true, nil
		default:
		}
		return false, e.lose(w, nil)
	}
}

// lose resolves a waiter whose race went to timeout or cancellation. If a
// Set claimed the waiter concurrently, that release is forwarded into a
// fresh Set so the signal count is preserved.
func (e *AutoResetEvent) lose(w *waiter, cause error) error {
	if !w.abandon() {
		<-w.done
		e.Set()
	}
	return cause
}
