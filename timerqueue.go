package reactor

import (
	"container/heap"
	"time"
)

// timerHeapEntry is one slot in the expiration-ordered min-heap.
type timerHeapEntry struct {
	expiration Timestamp
	timer      *Timer
}

// timerMinHeap orders entries by expiration, breaking ties by sequence
// so two timers scheduled for the same instant fire in creation order.
type timerMinHeap []timerHeapEntry

func (h timerMinHeap) Len() int { return len(h) }
func (h timerMinHeap) Less(i, j int) bool {
	if h[i].expiration.Equal(h[j].expiration) {
		return h[i].timer.sequence < h[j].timer.sequence
	}
	return h[i].expiration.Before(h[j].expiration)
}
func (h timerMinHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerMinHeap) Push(x any)   { *h = append(*h, x.(timerHeapEntry)) }
func (h *timerMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TimerQueue manages every Timer scheduled on a single EventLoop,
// sequencing them through one timerfd so the loop's own poll call is
// the sole place a timer can fire. AddTimer and Cancel are safe to call
// from any goroutine; the scheduling work they trigger always runs on
// the owning loop's goroutine via RunInLoop.
type TimerQueue struct {
	loop *EventLoop

	timerfd        int
	timerfdChannel *Channel

	timers       timerMinHeap
	activeTimers map[int64]*Timer

	callingExpiredTimers bool
	cancelingTimers      map[int64]struct{}
}

// NewTimerQueue constructs a TimerQueue bound to a new timerfd and wires
// its readiness Channel; the Channel is registered with the poller later,
// by start. Errors creating the timerfd are
// treated as fatal, matching the failure-semantics contract for
// unrecoverable kernel resource exhaustion during loop construction.
func NewTimerQueue(loop *EventLoop) *TimerQueue {
	fd, err := createTimerfd()
	if err != nil {
		panic("reactor: timerfd_create failed: " + err.Error())
	}

	q := &TimerQueue{
		loop:         loop,
		timerfd:      fd,
		activeTimers: make(map[int64]*Timer),
	}
	q.timerfdChannel = NewChannel(loop, fd)
	q.timerfdChannel.SetReadCallback(func(Timestamp) { q.handleRead() })
	// Registered with the poller by start, once the owning loop's
	// goroutine is known; see EventLoop.Loop.

	return q
}

// start registers the timerfd channel for read-readiness. Called once by
// EventLoop.Loop, after the loop's goroutine identity is published.
func (q *TimerQueue) start() {
	q.timerfdChannel.EnableReading()
}

// AddTimer schedules cb to run at when, repeating every interval if
// interval is positive (a one-shot otherwise). Safe to call from any
// goroutine; the actual heap insertion is deferred onto the owning
// loop's goroutine.
func (q *TimerQueue) AddTimer(cb func(), when Timestamp, interval time.Duration) TimerID {
	timer := newTimer(cb, when, interval)
	q.loop.RunInLoop(func() { q.addTimerInLoop(timer) })
	return TimerID{sequence: timer.sequence}
}

// Cancel cancels the timer identified by id. A no-op, not an error, if
// id is unknown (already fired, already canceled, or stale) — the same
// best-effort semantics as the reference implementation. Safe to call
// from any goroutine.
func (q *TimerQueue) Cancel(id TimerID) {
	q.loop.RunInLoop(func() { q.cancelInLoop(id) })
}

func (q *TimerQueue) addTimerInLoop(timer *Timer) {
	q.loop.assertInLoopThread()
	if q.insert(timer) {
		if err := resetTimerfd(q.timerfd, timer.expiration); err != nil {
			q.loop.logger.Log(LogEntry{Level: LevelWarn, Category: "timer", Message: "rearm timerfd failed", Err: err})
		}
	}
}

func (q *TimerQueue) cancelInLoop(id TimerID) {
	q.loop.assertInLoopThread()

	if timer, ok := q.activeTimers[id.sequence]; ok {
		delete(q.activeTimers, id.sequence)
		for i, e := range q.timers {
			if e.timer == timer {
				heap.Remove(&q.timers, i)
				break
			}
		}
		return
	}
	if q.callingExpiredTimers {
		q.cancelingTimers[id.sequence] = struct{}{}
	}
}

// Close detaches the timerfd channel and releases the fd. Must be
// called from the owning loop's goroutine after Loop has returned.
func (q *TimerQueue) Close() error {
	q.timerfdChannel.DisableAll()
	q.timerfdChannel.Remove()
	return closeFD(q.timerfd)
}

func (q *TimerQueue) handleRead() {
	q.loop.assertInLoopThread()
	now := Now()
	if err := readTimerfd(q.timerfd); err != nil {
		q.loop.logger.Log(LogEntry{Level: LevelWarn, Category: "timer", Message: "read timerfd failed", Err: err})
	}

	expired := q.getExpired(now)

	q.callingExpiredTimers = true
	q.cancelingTimers = make(map[int64]struct{})
	for _, e := range expired {
		e.timer.callback()
	}
	q.callingExpiredTimers = false

	q.reset(expired, now)
}

// getExpired removes and returns every timer due at or before now from
// both indexes.
func (q *TimerQueue) getExpired(now Timestamp) []timerHeapEntry {
	var expired []timerHeapEntry
	for len(q.timers) > 0 && !now.Before(q.timers[0].expiration) {
		e := heap.Pop(&q.timers).(timerHeapEntry)
		delete(q.activeTimers, e.timer.sequence)
		expired = append(expired, e)
	}
	return expired
}

// reset re-arms repeating timers that weren't canceled during their own
// callback, then re-arms the timerfd for the new earliest expiration.
func (q *TimerQueue) reset(expired []timerHeapEntry, now Timestamp) {
	for _, e := range expired {
		_, canceled := q.cancelingTimers[e.timer.sequence]
		if e.timer.repeats() && !canceled {
			e.timer.restart(now)
			q.insert(e.timer)
		}
	}

	if len(q.timers) > 0 {
		if err := resetTimerfd(q.timerfd, q.timers[0].expiration); err != nil {
			q.loop.logger.Log(LogEntry{Level: LevelWarn, Category: "timer", Message: "rearm timerfd failed", Err: err})
		}
	}
}

// insert adds timer to both indexes and reports whether it became the
// new earliest expiration.
func (q *TimerQueue) insert(timer *Timer) bool {
	earliestChanged := len(q.timers) == 0 || timer.expiration.Before(q.timers[0].expiration)
	heap.Push(&q.timers, timerHeapEntry{expiration: timer.expiration, timer: timer})
	q.activeTimers[timer.sequence] = timer
	return earliestChanged
}
