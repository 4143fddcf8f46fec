package reactor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerRunAfterFiresOnce(t *testing.T) {
	loop := newRunningLoop(t)

	var count atomic.Int32
	loop.RunAfter(20*time.Millisecond, func() { count.Add(1) })

	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), count.Load())
}

func TestTimerCancelBeforeExpirationNeverFires(t *testing.T) {
	loop := newRunningLoop(t)

	var fired atomic.Bool
	var id TimerID
	loop.RunInLoop(func() {
		id = loop.RunAfter(50*time.Millisecond, func() { fired.Store(true) })
	})
	time.Sleep(5 * time.Millisecond)
	loop.CancelTimer(id)

	time.Sleep(150 * time.Millisecond)
	require.False(t, fired.Load())
}

// A callback firing at t=50ms cancels a second timer scheduled for
// t=51ms; the canceled timer must never run even though its callback
// was already racing to fire when the cancellation is requested.
func TestTimerCallbackCancelsLaterSiblingTimer(t *testing.T) {
	loop := newRunningLoop(t)

	var bFired atomic.Bool
	var bID TimerID
	done := make(chan struct{})

	loop.RunInLoop(func() {
		now := Now()
		bID = loop.RunAt(now.AddDuration(51*time.Millisecond), func() {
			bFired.Store(true)
		})
		loop.RunAt(now.AddDuration(50*time.Millisecond), func() {
			loop.CancelTimer(bID)
			close(done)
		})
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer A never fired")
	}

	time.Sleep(100 * time.Millisecond)
	require.False(t, bFired.Load())
}

func TestTimerRunEveryFiresRepeatedlyAtStableRate(t *testing.T) {
	loop := newRunningLoop(t)

	var count atomic.Int32
	var id TimerID
	loop.RunInLoop(func() {
		id = loop.RunEvery(10*time.Millisecond, func() { count.Add(1) })
	})

	time.Sleep(time.Second)
	loop.CancelTimer(id)

	n := count.Load()
	require.GreaterOrEqual(t, n, int32(95))
	require.LessOrEqual(t, n, int32(105))
}

func TestTimerCancelStopsRepeatingTimer(t *testing.T) {
	loop := newRunningLoop(t)

	var count atomic.Int32
	var id TimerID
	loop.RunInLoop(func() {
		id = loop.RunEvery(10*time.Millisecond, func() { count.Add(1) })
	})

	time.Sleep(55 * time.Millisecond)
	loop.CancelTimer(id)
	after := count.Load()

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, after, count.Load())
}
