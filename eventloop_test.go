package reactor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newRunningLoop(t *testing.T) *EventLoop {
	t.Helper()
	loop, err := NewEventLoop(t.Name(), WithPollTimeout(50*time.Millisecond))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.Loop() }()

	require.Eventually(t, func() bool { return loop.goroutineID.Load() != 0 }, time.Second, time.Millisecond)

	t.Cleanup(func() {
		loop.Quit()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("loop did not stop in time")
		}
		require.NoError(t, loop.Close())
	})

	return loop
}

func TestEventLoopRunInLoopFromOutsideIsQueued(t *testing.T) {
	loop := newRunningLoop(t)

	var ran atomic.Bool
	var onLoopGoroutine atomic.Bool
	loop.RunInLoop(func() {
		onLoopGoroutine.Store(loop.IsInLoopThread())
		ran.Store(true)
	})

	require.Eventually(t, ran.Load, time.Second, time.Millisecond)
	require.True(t, onLoopGoroutine.Load())
}

func TestEventLoopQueueInLoopOrdersAfterCurrentCallback(t *testing.T) {
	loop := newRunningLoop(t)

	var order []int
	done := make(chan struct{})

	loop.RunInLoop(func() {
		order = append(order, 1)
		loop.QueueInLoop(func() {
			order = append(order, 3)
			close(done)
		})
		order = append(order, 2)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queued functor never ran")
	}
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestEventLoopQuitFromAnotherGoroutineStopsLoop(t *testing.T) {
	loop, err := NewEventLoop(t.Name(), WithPollTimeout(50*time.Millisecond))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.Loop() }()

	require.Eventually(t, func() bool { return loop.goroutineID.Load() != 0 }, time.Second, time.Millisecond)
	loop.Quit()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not quit")
	}
	require.NoError(t, loop.Close())
}

func TestEventLoopAssertInLoopThreadPanicsOffThread(t *testing.T) {
	loop := newRunningLoop(t)
	require.Panics(t, func() { loop.assertInLoopThread() })
}
