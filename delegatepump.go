package asyncevents

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Action is a unit of work executed by a DelegatePump.
type Action func(ctx context.Context) error

const (
	unitPending int32 = iota
	unitStarted
	unitTerminal
)

// workUnit tracks one queued action. The pending-to-started claim belongs
// to the pump; the pending-to-terminal claim belongs to the unit's own
// deadline timer or cancellation watcher. Whoever claims first owns the
// result; once started, deadline and cancellation have no effect.
type workUnit struct {
	action Action
	result *Completion[struct{}]
	state  atomic.Int32
	timer  *time.Timer
}

// DelegatePump is a MessagePump whose payload is callable work units.
// Actions run one at a time, strictly in Post/Send call order; a unit whose
// deadline or cancellation fires before its turn is skipped in its turn
// without ever running.
type DelegatePump struct {
	pump *MessagePump[*workUnit]
}

var _ Pump = (*DelegatePump)(nil)

// NewDelegatePump creates an empty DelegatePump. The error handler option,
// if given, receives failures from actions submitted via Post; a failure
// from a Send action resolves that caller's own result instead.
func NewDelegatePump(opts ...PumpOption) *DelegatePump {
	d := &DelegatePump{}
	d.pump = NewMessagePump(d.process, opts...)
	return d
}

// Post enqueues action for fire-and-forget execution, with no deadline or
// cancellation tracking. ctx is captured and passed to the action when it
// runs. Panics if action is nil.
func (d *DelegatePump) Post(ctx context.Context, action Action) {
	if action == nil {
		panic("asyncevents: cannot post a nil action")
	}
	d.pump.Post(ctx, &workUnit{action: action})
}

// Send enqueues action and returns a completion resolved with the action's
// outcome. If timeout (Forever for none) elapses or ctx is canceled before
// the pump reaches the unit, the completion resolves with ErrTimedOut or
// the context's error and the action never runs; its slot is skipped in
// FIFO order, not removed early. A unit the pump has started is immune to
// both.
//
// A zero or otherwise invalid timeout fails synchronously with
// ErrInvalidTimeout, and an already-canceled ctx fails synchronously with
// its error, in both cases before anything is queued.
func (d *DelegatePump) Send(ctx context.Context, action Action, timeout time.Duration) (*Completion[struct{}], error) {
	if action == nil {
		panic("asyncevents: cannot send a nil action")
	}
	if timeout == 0 || timeout < Forever {
		return nil, errors.Wrapf(ErrInvalidTimeout, "%v", timeout)
	}
	ctx = orBackground(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u := &workUnit{action: action, result: NewCompletion[struct{}]()}
	if timeout != Forever {
		u.timer = time.AfterFunc(timeout, func() {
			if u.state.CompareAndSwap(unitPending, unitTerminal) {
				u.result.Fail(ErrTimedOut)
			}
		})
	}
	if ctx.Done() != nil {
		// The watcher parks until the unit settles one way or the other,
		// so the registration is released exactly once.
		go func() {
			select {
			case <-ctx.Done():
				if u.state.CompareAndSwap(unitPending, unitTerminal) {
					if u.timer != nil {
						u.timer.Stop()
					}
					u.result.Fail(ctx.Err())
				}
			case <-u.result.Done():
			}
		}()
	}
	d.pump.Post(ctx, u)
	return u.result, nil
}

// Count returns the number of queued units, including the in-flight head
// and units already timed out or canceled but not yet reached.
func (d *DelegatePump) Count() int {
	return d.pump.Count()
}

// Drain blocks until the queue is empty or ctx is canceled.
func (d *DelegatePump) Drain(ctx context.Context) error {
	return d.pump.Drain(ctx)
}

// DrainDone returns a channel closed when the queue next becomes empty.
func (d *DelegatePump) DrainDone() <-chan struct{} {
	return d.pump.DrainDone()
}

// process is the pump callback for one unit's turn.
func (d *DelegatePump) process(ctx context.Context, u *workUnit) error {
	if !u.state.CompareAndSwap(unitPending, unitStarted) {
		// Expired or canceled before its turn; skip without running.
		return nil
	}
	if u.timer != nil {
		u.timer.Stop()
	}
	err := runAction(ctx, u.action)
	if u.result == nil {
		// Fire-and-forget: route the failure to the pump's error handler.
		return err
	}
	if err != nil {
		u.result.Fail(err)
	} else {
		u.result.Complete(struct{}{})
	}
	return nil
}

func runAction(ctx context.Context, action Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("delegate action panicked: %v", r)
		}
	}()
	return action(ctx)
}
