package asyncevents

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	completionPending int32 = iota
	completionResolved
)

// Completion is a resolve-once handle for a not-yet-available outcome.
// Exactly one Complete or Fail wins; every later attempt is a no-op. Any
// number of parties may await the outcome, via Done, Await, or AwaitTimeout.
//
// The zero value is not usable; construct with NewCompletion,
// CompletedCompletion, or FailedCompletion.
type Completion[T any] struct {
	state atomic.Int32
	done  chan struct{}
	value T
	err   error
}

// NewCompletion creates a pending completion.
func NewCompletion[T any]() *Completion[T] {
	return &Completion[T]{done: make(chan struct{})}
}

// CompletedCompletion creates a completion already resolved with value.
// All such completions share one pre-closed channel.
func CompletedCompletion[T any](value T) *Completion[T] {
	c := &Completion[T]{done: closedChan, value: value}
	c.state.Store(completionResolved)
	return c
}

// FailedCompletion creates a completion already resolved with err.
func FailedCompletion[T any](err error) *Completion[T] {
	c := &Completion[T]{done: closedChan, err: err}
	c.state.Store(completionResolved)
	return c
}

// Complete resolves the completion with value. It reports whether this call
// was the one that resolved it.
func (c *Completion[T]) Complete(value T) bool {
	if !c.state.CompareAndSwap(completionPending, completionResolved) {
		return false
	}
	c.value = value
	close(c.done)
	return true
}

// Fail resolves the completion with err. It reports whether this call was
// the one that resolved it.
func (c *Completion[T]) Fail(err error) bool {
	if !c.state.CompareAndSwap(completionPending, completionResolved) {
		return false
	}
	c.err = err
	close(c.done)
	return true
}

// Done returns a channel closed once the completion is resolved.
func (c *Completion[T]) Done() <-chan struct{} {
	return c.done
}

// IsDone reports whether the completion has been resolved.
func (c *Completion[T]) IsDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value or failure. While the completion is
// still pending it returns ErrNotCompleted.
func (c *Completion[T]) Result() (T, error) {
	select {
	case <-c.done:
		return c.value, c.err
	default:
		var zero T
		return zero, ErrNotCompleted
	}
}

// Await blocks until the completion resolves or ctx is canceled, returning
// the outcome or the context's error.
func (c *Completion[T]) Await(ctx context.Context) (T, error) {
	v, _, err := c.AwaitTimeout(ctx, Forever)
	return v, err
}

// AwaitTimeout races the completion against an optional timeout and the
// context's cancellation. The second return value is true if the completion
// resolved (in which case the first and third carry its outcome), and false
// if the timeout elapsed first. Cancellation returns the context's error.
//
// A zero timeout polls: if the completion is not already resolved the call
// returns immediately without registering a timer. Forever with a
// non-cancelable context degenerates to a bare channel receive. Whichever
// of the timer and the completion loses the race, the timer is stopped
// before return, and a failure stored in the completion is never masked by
// a timeout that fires in the same instant.
func (c *Completion[T]) AwaitTimeout(ctx context.Context, timeout time.Duration) (T, bool, error) {
	var zero T
	if err := validTimeout(timeout); err != nil {
		return zero, false, err
	}
	ctx = orBackground(ctx)
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	select {
	case <-c.done:
		v, err := c.Result()
		return v, true, err
	default:
	}
	if timeout == 0 {
		return zero, false, nil
	}
	if timeout == Forever {
		if ctx.Done() == nil {
			<-c.done
			v, err := c.Result()
			return v, true, err
		}
		select {
		case <-c.done:
			v, err := c.Result()
			return v, true, err
		case <-ctx.Done():
			return zero, false, ctx.Err()
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.done:
		v, err := c.Result()
		return v, true, err
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case <-timer.C:
		// The completion may have resolved in the same instant the timer
		// fired; prefer it so a stored failure is not masked.
		select {
		case <-c.done:
			v, err := c.Result()
			return v, true, err
		default:
		}
		return zero, false, nil
	}
}
