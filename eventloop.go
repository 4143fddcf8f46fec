package reactor

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// EventLoop is the reactor's unit of concurrency: one loop runs on
// exactly one goroutine for its entire lifetime, and every Channel,
// TcpConnection, or timer registered on it may only be touched from that
// goroutine. Cross-goroutine work reaches the loop via RunInLoop or
// QueueInLoop.
type EventLoop struct {
	logger      Logger
	pollTimeout time.Duration

	poller Multiplexer
	timers *TimerQueue

	wakeFd      int
	wakeChannel *Channel

	looping atomic.Bool
	quit    atomic.Bool

	goroutineID atomic.Uint64

	pollReturnTime Timestamp

	mu                     sync.Mutex
	pendingFunctors        []func()
	callingPendingFunctors atomic.Bool

	channels map[int]*Channel

	name string
}

// NewEventLoop constructs an EventLoop bound to a fresh epoll instance
// and eventfd wake-up channel. The loop does not start running until
// Loop is called.
func NewEventLoop(name string, opts ...LoopOption) (*EventLoop, error) {
	cfg := resolveLoopOptions(opts)

	poller, err := NewEpollPoller(cfg.logger)
	if err != nil {
		return nil, err
	}

	wakeFd, err := createWakeFd()
	if err != nil {
		_ = poller.Close()
		return nil, err
	}

	loop := &EventLoop{
		logger:      cfg.logger,
		pollTimeout: cfg.pollTimeout,
		poller:      poller,
		name:        name,
		channels:    make(map[int]*Channel),
	}
	loop.timers = NewTimerQueue(loop)

	loop.wakeChannel = NewChannel(loop, wakeFd)
	loop.wakeFd = wakeFd
	loop.wakeChannel.SetReadCallback(func(Timestamp) {
		if err := drainWakeFd(wakeFd); err != nil {
			loop.logger.Log(LogEntry{Level: LevelWarn, Category: "loop", Message: "drain wake fd failed", Err: err, LoopName: name})
		}
	})
	// wakeChannel and the timer queue's own channel are only registered
	// with the poller once Loop starts, since registration asserts loop-
	// thread affinity and the owning goroutine isn't known until then.

	return loop, nil
}

// Name returns the loop's diagnostic name.
func (l *EventLoop) Name() string { return l.name }

// RunAt schedules cb to run once at when.
func (l *EventLoop) RunAt(when Timestamp, cb func()) TimerID {
	return l.timers.AddTimer(cb, when, 0)
}

// RunAfter schedules cb to run once after delay elapses.
func (l *EventLoop) RunAfter(delay time.Duration, cb func()) TimerID {
	return l.timers.AddTimer(cb, Now().AddDuration(delay), 0)
}

// RunEvery schedules cb to run repeatedly every interval, starting after
// the first interval elapses.
func (l *EventLoop) RunEvery(interval time.Duration, cb func()) TimerID {
	return l.timers.AddTimer(cb, Now().AddDuration(interval), interval)
}

// CancelTimer cancels a timer previously returned by RunAt, RunAfter, or
// RunEvery. A no-op if id is stale.
func (l *EventLoop) CancelTimer(id TimerID) {
	l.timers.Cancel(id)
}

// PollReturnTime returns the timestamp captured by the most recent Poll
// call.
func (l *EventLoop) PollReturnTime() Timestamp { return l.pollReturnTime }

// Loop runs the reactor loop until Quit is called. It must be called at
// most once, from the goroutine that is to become the loop's own.
func (l *EventLoop) Loop() error {
	if !l.looping.CompareAndSwap(false, true) {
		return ErrLoopAlreadyRunning
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.goroutineID.Store(getGoroutineID())
	defer l.goroutineID.Store(0)

	l.wakeChannel.EnableReading()
	l.timers.start()

	l.logger.Log(LogEntry{Level: LevelInfo, Category: "loop", Message: "loop started", LoopName: l.name})

	var activeChannels []*Channel
	timeoutMs := int(l.pollTimeout / time.Millisecond)
	for !l.quit.Load() {
		activeChannels = activeChannels[:0]

		now, err := l.poller.Poll(timeoutMs, &activeChannels)
		if err != nil {
			l.logger.Log(LogEntry{Level: LevelError, Category: "poll", Message: "poll failed", Err: err, LoopName: l.name})
			continue
		}
		l.pollReturnTime = now

		for _, ch := range activeChannels {
			ch.HandleEvent(now)
		}

		l.doPendingFunctors()
	}

	l.logger.Log(LogEntry{Level: LevelInfo, Category: "loop", Message: "loop stopped", LoopName: l.name})
	l.looping.Store(false)
	return nil
}

// Quit requests the loop stop at the end of its current iteration. Safe
// to call from any goroutine.
func (l *EventLoop) Quit() {
	l.quit.Store(true)
	if !l.IsInLoopThread() {
		l.wakeup()
	}
}

// RunInLoop runs cb on the loop's own goroutine. If called from that
// goroutine already, cb runs immediately (synchronously); otherwise it
// is enqueued and the loop is woken.
func (l *EventLoop) RunInLoop(cb func()) {
	if l.IsInLoopThread() {
		cb()
		return
	}
	l.QueueInLoop(cb)
}

// QueueInLoop enqueues cb to run on the loop's own goroutine at the next
// opportunity, waking the loop if necessary. Unlike RunInLoop, cb always
// runs after the current iteration's callbacks, even when called from
// the loop's own goroutine inside one of them.
func (l *EventLoop) QueueInLoop(cb func()) {
	l.mu.Lock()
	l.pendingFunctors = append(l.pendingFunctors, cb)
	l.mu.Unlock()

	if !l.IsInLoopThread() || l.callingPendingFunctors.Load() {
		l.wakeup()
	}
}

func (l *EventLoop) doPendingFunctors() {
	l.callingPendingFunctors.Store(true)
	defer l.callingPendingFunctors.Store(false)

	l.mu.Lock()
	functors := l.pendingFunctors
	l.pendingFunctors = nil
	l.mu.Unlock()

	for _, fn := range functors {
		fn()
	}
}

func (l *EventLoop) wakeup() {
	if err := writeWakeFd(l.wakeFd); err != nil {
		l.logger.Log(LogEntry{Level: LevelWarn, Category: "loop", Message: "wakeup write failed", Err: err, LoopName: l.name})
	}
}

// updateChannel reconciles ch's interest set with the poller. Called
// only by Channel methods, which already guarantee loop-thread
// execution.
func (l *EventLoop) updateChannel(ch *Channel) {
	l.assertInLoopThread()
	l.channels[ch.Fd()] = ch
	if err := l.poller.UpdateChannel(ch); err != nil {
		l.logger.Log(LogEntry{Level: LevelError, Category: "poll", Message: "update channel failed", Err: err, LoopName: l.name, Fd: ch.Fd()})
	}
}

// removeChannel detaches ch from the loop and poller.
func (l *EventLoop) removeChannel(ch *Channel) {
	l.assertInLoopThread()
	delete(l.channels, ch.Fd())
	if err := l.poller.RemoveChannel(ch); err != nil {
		l.logger.Log(LogEntry{Level: LevelError, Category: "poll", Message: "remove channel failed", Err: err, LoopName: l.name, Fd: ch.Fd()})
	}
}

// HasChannel reports whether ch is currently registered on this loop.
func (l *EventLoop) HasChannel(ch *Channel) bool {
	l.assertInLoopThread()
	found, ok := l.channels[ch.Fd()]
	return ok && found == ch
}

// IsInLoopThread reports whether the calling goroutine is this loop's
// own.
func (l *EventLoop) IsInLoopThread() bool {
	id := l.goroutineID.Load()
	return id != 0 && id == getGoroutineID()
}

// assertInLoopThread panics if the loop is running and the calling
// goroutine is not its own. Before Loop starts and after it returns,
// goroutineID is 0 and there is by construction no loop goroutine to
// race with, so calls from the constructing or closing goroutine (e.g.
// wiring up the wake/timer channels, or Close tearing them down) are
// permitted; only a genuine cross-goroutine touch of a running loop is
// a programmer error.
func (l *EventLoop) assertInLoopThread() {
	if l.goroutineID.Load() == 0 {
		return
	}
	if !l.IsInLoopThread() {
		panic(ErrNotInLoopThread)
	}
}

// Close releases the loop's own kernel resources (poller fd, wake fd).
// Must be called after Loop has returned.
func (l *EventLoop) Close() error {
	if err := l.timers.Close(); err != nil {
		return err
	}
	if err := closeFD(l.wakeFd); err != nil {
		return err
	}
	return l.poller.Close()
}

// getGoroutineID parses the calling goroutine's numeric ID out of a
// runtime.Stack dump. This is the only practical way to recover an
// identity comparable across calls without cgo or an unsafe build tag;
// it is only ever used for the loop-thread-affinity assertion, never on
// a hot path.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
