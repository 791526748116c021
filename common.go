package asyncevents

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Forever is the timeout value meaning "wait indefinitely".
const Forever time.Duration = -1

var (
	// ErrTimedOut is the failure delivered to a DelegatePump.Send result
	// whose deadline elapses before the action is reached. Wait operations
	// report an elapsed timeout as a false return instead.
	ErrTimedOut = errors.New("asyncevents: operation timed out")

	// ErrInvalidTimeout is returned for timeout values that are neither
	// Forever, zero, nor positive.
	ErrInvalidTimeout = errors.New("asyncevents: invalid timeout")

	// ErrNotCompleted is returned by Completion.Result while the
	// completion is still pending.
	ErrNotCompleted = errors.New("asyncevents: completion is still pending")
)

// closedChan is shared by everything that is resolved at birth, so that
// already-signaled results never allocate a channel per call.
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// validTimeout rejects any timeout other than Forever, zero, or a positive
// duration.
func validTimeout(timeout time.Duration) error {
	if timeout < Forever {
		return errors.Wrapf(ErrInvalidTimeout, "%v", timeout)
	}
	return nil
}

// orBackground normalizes a nil context, which callers may pass to mean
// "not cancelable".
func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

type setConfig struct {
	deferred bool
}

// SetOption configures a Set call on either event type.
type SetOption func(*setConfig)

// Deferred makes Set resolve its waiters on a background goroutine instead
// of before Set returns. Waiters never run on the signaling goroutine either
// way; the option only controls whether the wakeup happens before or after
// Set returns to its caller.
func Deferred() SetOption {
	return func(c *setConfig) {
		c.deferred = true
	}
}

func applySetOptions(opts []SetOption) setConfig {
	var cfg setConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
