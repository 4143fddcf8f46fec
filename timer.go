package reactor

import (
	"sync/atomic"
	"time"
)

var timerSequenceCounter atomic.Int64

// Timer is a single scheduled callback, owned exclusively by the
// TimerQueue that created it.
type Timer struct {
	callback   func()
	expiration Timestamp
	interval   time.Duration // zero: one-shot
	sequence   int64
}

func newTimer(cb func(), when Timestamp, interval time.Duration) *Timer {
	return &Timer{
		callback:   cb,
		expiration: when,
		interval:   interval,
		sequence:   timerSequenceCounter.Add(1),
	}
}

// repeats reports whether this timer re-arms itself after firing.
func (t *Timer) repeats() bool { return t.interval > 0 }

// restart advances a repeating timer's expiration to the next interval
// boundary after now.
func (t *Timer) restart(now Timestamp) {
	t.expiration = now.AddDuration(t.interval)
}

// TimerID identifies a Timer returned by TimerQueue.AddTimer, opaque to
// callers beyond passing it back to Cancel.
type TimerID struct {
	sequence int64
}
