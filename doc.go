// Package asyncevents provides asynchronous coordination primitives for
// concurrent code within a single process.
//
// The package implements channel-based renditions of the classic reset-event
// and message-pump patterns, built so that a waiter racing a signal against a
// timeout or a cancellation observes exactly one outcome, with no lost
// wakeups and no leaked timers or registrations.
//
// The main components include:
//
//   - Completion: a resolve-once promise/future, observable by any number of awaiting parties, with deadline- and context-aware awaiting
//   - ManualResetEvent: a broadcast latch; once set, all current and future waiters observe "signaled" until Reset swaps in a fresh generation
//   - AutoResetEvent: a single-release gate with a strict FIFO queue of waiters; one Set releases exactly one waiter, or is remembered if nobody waits
//   - MessagePump: an ordered single-consumer executor that serializes concurrently posted values (or pending completions) through one callback
//   - DelegatePump: a MessagePump of callable work units, each optionally carrying its own deadline and cancellation evaluated before it starts
//
// All blocking operations take a context.Context; context.Background() means
// "not cancelable". Timeouts are time.Duration values where Forever means
// infinite and zero means a non-blocking poll.
package asyncevents
