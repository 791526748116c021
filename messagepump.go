package asyncevents

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

// pumpEntry is one queued item: either an immediate value or a pending
// completion, plus the poster's context captured at post time. The head
// entry stays in the queue while it is processed, so the queue length is
// always "pending + in-flight".
type pumpEntry[T any] struct {
	ctx    context.Context
	value  T
	future *Completion[T]
}

type pumpConfig struct {
	onError func(error)
}

// PumpOption configures a MessagePump or DelegatePump.
type PumpOption func(*pumpConfig)

// WithErrorHandler installs the handler invoked with failures from the
// pump's callback, from awaiting a posted completion, or from a recovered
// panic. The default handler logs via slog. A panicking handler is
// swallowed; the pump never stops because of a failure.
func WithErrorHandler(h func(error)) PumpOption {
	return func(c *pumpConfig) {
		c.onError = h
	}
}

// MessagePump is an ordered, single-consumer executor. Values posted
// concurrently from any number of goroutines are handed to the callback
// exactly once each, strictly in post order, never overlapping. The
// processing loop is started by whichever post makes the queue non-empty
// and exits when the queue drains; no goroutine idles while the pump is
// empty.
type MessagePump[T any] struct {
	callback func(ctx context.Context, msg T) error
	onError  func(error)

	mu    sync.Mutex
	queue []pumpEntry[T]
	drain *Completion[struct{}]
}

var _ Pump = (*MessagePump[int])(nil)

// NewMessagePump creates a pump that serializes posted values through
// callback. The callback receives the context captured from the entry's
// poster; a blocking callback simply holds up the queue behind it.
// Panics if callback is nil.
func NewMessagePump[T any](callback func(ctx context.Context, msg T) error, opts ...PumpOption) *MessagePump[T] {
	if callback == nil {
		panic("asyncevents: MessagePump requires a callback")
	}
	var cfg pumpConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.onError == nil {
		cfg.onError = func(err error) {
			slog.Error("asyncevents: message pump callback failed", "error", err)
		}
	}
	return &MessagePump[T]{callback: callback, onError: cfg.onError}
}

// Post enqueues value for processing. ctx is captured with the entry and
// passed to the callback for this entry only; it does not cancel the entry.
func (p *MessagePump[T]) Post(ctx context.Context, value T) {
	p.post(pumpEntry[T]{ctx: orBackground(ctx), value: value})
}

// PostCompletion enqueues a pending result. The pump awaits it when the
// entry reaches the head of the queue, then hands the resolved value to the
// callback; a failed completion is routed to the error handler and the
// entry is skipped. Panics if c is nil.
func (p *MessagePump[T]) PostCompletion(ctx context.Context, c *Completion[T]) {
	if c == nil {
		panic("asyncevents: cannot post a nil completion")
	}
	p.post(pumpEntry[T]{ctx: orBackground(ctx), future: c})
}

func (p *MessagePump[T]) post(e pumpEntry[T]) {
	p.mu.Lock()
	p.queue = append(p.queue, e)
	first := len(p.queue) == 1
	p.mu.Unlock()
	// Only the post that found the queue empty starts the loop; everyone
	// else's entry is picked up by the loop already running.
	if first {
		go p.run()
	}
}

// Count returns the number of queued entries, including the in-flight head.
func (p *MessagePump[T]) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Drain blocks until the queue is empty or ctx is canceled. With an empty
// queue it returns immediately.
func (p *MessagePump[T]) Drain(ctx context.Context) error {
	_, err := p.drainCompletion().Await(ctx)
	return err
}

// DrainDone returns a channel closed when the queue next becomes empty
// (already closed if it is empty now). Overlapping calls while the queue is
// non-empty share one handle, which is resolved exactly on the
// non-empty-to-empty transition.
func (p *MessagePump[T]) DrainDone() <-chan struct{} {
	return p.drainCompletion().Done()
}

var drainedCompletion = CompletedCompletion(struct{}{})

func (p *MessagePump[T]) drainCompletion() *Completion[struct{}] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return drainedCompletion
	}
	if p.drain == nil {
		p.drain = NewCompletion[struct{}]()
	}
	return p.drain
}

// run is the processing loop. It peeks the head without removing it,
// processes it, then removes it under the lock; when removal empties the
// queue it resolves any outstanding drain handle and exits. The loop only
// ever terminates via queue-empty, never via a failure.
func (p *MessagePump[T]) run() {
	for {
		p.mu.Lock()
		entry := p.queue[0]
		p.mu.Unlock()

		p.process(entry)

		p.mu.Lock()
		p.queue[0] = pumpEntry[T]{}
		p.queue = p.queue[1:]
		if len(p.queue) > 0 {
			p.mu.Unlock()
			continue
		}
		p.queue = nil
		drain := p.drain
		p.drain = nil
		p.mu.Unlock()
		if drain != nil {
			drain.Complete(struct{}{})
		}
		return
	}
}

func (p *MessagePump[T]) process(e pumpEntry[T]) {
	defer func() {
		if r := recover(); r != nil {
			p.handleError(errors.Errorf("message pump callback panicked: %v", r))
		}
	}()
	value := e.value
	if e.future != nil {
		v, err := e.future.Await(context.Background())
		if err != nil {
			p.handleError(errors.Wrap(err, "awaiting posted completion"))
			return
		}
		value = v
	}
	if err := p.callback(e.ctx, value); err != nil {
		p.handleError(err)
	}
}

// handleError routes a failure to the configured handler. A handler that
// itself panics must not take the loop down with it.
func (p *MessagePump[T]) handleError(err error) {
	defer func() {
		_ = recover()
	}()
	p.onError(err)
}
