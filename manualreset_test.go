package asyncevents

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func ExampleManualResetEvent() {
	gate := NewManualResetEvent(false)

	done := make(chan string)
	go func() {
		_ = gate.Wait(context.Background())
		done <- "released"
	}()

	gate.Set()
	fmt.Println(<-done)

	// Output:
	// released
}

func TestManualResetInitialState(t *testing.T) {
	set := NewManualResetEvent(true)
	assert.True(t, set.IsSet())
	ok, err := set.WaitTimeout(context.Background(), 0)
	assert.NoError(t, err)
	assert.True(t, ok)

	unset := NewManualResetEvent(false)
	assert.False(t, unset.IsSet())
	ok, err = unset.WaitTimeout(context.Background(), 0)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestManualResetBroadcast(t *testing.T) {
	e := NewManualResetEvent(false)

	const waiters = 8
	released := make(chan int, waiters)
	for i := range waiters {
		go func() {
			if err := e.Wait(context.Background()); err == nil {
				released <- i
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, released, "Nobody should be released before Set")

	e.Set()
	seen := map[int]bool{}
	for range waiters {
		seen[withTimeout(t, released)] = true
	}
	assert.Len(t, seen, waiters, "Set must release every waiter")

	// Future waiters observe signaled until Reset.
	ok, err := e.WaitTimeout(context.Background(), 0)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestManualResetSetIdempotent(t *testing.T) {
	e := NewManualResetEvent(false)
	e.Set()
	e.Set()
	assert.True(t, e.IsSet())
	e.Reset()
	assert.False(t, e.IsSet())
}

func TestManualResetResetOnPendingIsNoop(t *testing.T) {
	e := NewManualResetEvent(false)
	woke := make(chan struct{})
	go func() {
		_ = e.Wait(context.Background())
		close(woke)
	}()
	time.Sleep(10 * time.Millisecond)

	// The pending generation must survive a Reset, so the queued waiter
	// still wakes on the next Set.
	e.Reset()
	e.Set()
	withTimeout(t, woke)
}

func TestManualResetNewGenerationAfterReset(t *testing.T) {
	e := NewManualResetEvent(true)
	e.Reset()

	ok, err := e.WaitTimeout(context.Background(), 20*time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, ok, "Reset must unsignal the event")

	e.Set()
	ok, err = e.WaitTimeout(context.Background(), 0)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestManualResetConcurrentResets(t *testing.T) {
	// Racing resets against a signaled generation must install exactly one
	// fresh generation; a third caller must never observe a corrupted slot.
	e := NewManualResetEvent(false)

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			for range 500 {
				e.Set()
				e.Reset()
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())

	// The slot is still a usable generation either way.
	e.Set()
	ok, err := e.WaitTimeout(context.Background(), 0)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestManualResetDeferredSet(t *testing.T) {
	e := NewManualResetEvent(false)
	var woke atomic.Int32
	done := make(chan struct{})
	go func() {
		_ = e.Wait(context.Background())
		woke.Add(1)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	e.Set(Deferred())
	withTimeout(t, done)
	assert.Equal(t, int32(1), woke.Load())
}

func TestManualResetWaitCancellation(t *testing.T) {
	e := NewManualResetEvent(false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	err = e.Wait(ctx2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
