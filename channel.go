package reactor

import (
	"weak"

	"golang.org/x/sys/unix"
)

// TieChannel attaches a weak reference to obj on c. Before every dispatch
// the weak reference is checked for liveness; if obj is no longer
// reachable, the event is dropped silently instead of invoking a callback
// against a destroyed owner. This mirrors the muduo shared_ptr/weak_ptr
// discipline using Go's weak package: the owner (e.g. a TcpConnection) is
// pinned for the loop's own lifetime by its Channel callbacks, and Tie
// exists to guard against the owner being torn down out from under a
// stale, already-queued readiness event.
func TieChannel[T any](c *Channel, obj *T) {
	wp := weak.Make(obj)
	c.tied = true
	c.aliveCheck = func() bool { return wp.Value() != nil }
}

// channelState discriminates the path the multiplexer takes when
// reconciling a Channel with the kernel interest set.
type channelState int

const (
	channelStateNew channelState = iota
	channelStateAdded
	channelStateDeleted
)

// Channel is the per-fd record mediating between the Multiplexer and user
// callbacks. A Channel belongs to exactly one EventLoop for its lifetime and
// may only be mutated from that loop's goroutine.
type Channel struct {
	loop *EventLoop
	fd   int

	events  uint32 // interests currently registered with the poller
	revents uint32 // last reported events from the poller

	state channelState

	tied       bool
	aliveCheck func() bool

	readCallback  func(receiveTime Timestamp)
	writeCallback func()
	closeCallback func()
	errorCallback func()

	// eventHandling is true while handleEventWithGuard is dispatching
	// callbacks. Nothing reads it; Remove does not check it.
	eventHandling bool
	addedToLoop   bool
}

// I/O interest bits, matching EPOLLIN/EPOLLOUT/EPOLLPRI/EPOLLERR/EPOLLHUP.
const (
	readEvent  = unix.EPOLLIN | unix.EPOLLPRI
	writeEvent = unix.EPOLLOUT
	noneEvent  = 0
)

// NewChannel constructs a Channel for fd, owned by loop. The Channel is not
// registered with the poller until the first call to a method that changes
// its interest set.
func NewChannel(loop *EventLoop, fd int) *Channel {
	return &Channel{
		loop:  loop,
		fd:    fd,
		state: channelStateNew,
	}
}

// Fd returns the file descriptor this Channel represents.
func (c *Channel) Fd() int { return c.fd }

// Events returns the currently registered interest set (for poller use).
func (c *Channel) Events() uint32 { return c.events }

// SetRevents records the events last reported by the poller for this
// Channel. Called only by the Multiplexer immediately before dispatch.
func (c *Channel) SetRevents(revents uint32) { c.revents = revents }

// SetReadCallback installs the callback invoked on read-readiness.
func (c *Channel) SetReadCallback(cb func(receiveTime Timestamp)) { c.readCallback = cb }

// SetWriteCallback installs the callback invoked on write-readiness.
func (c *Channel) SetWriteCallback(cb func()) { c.writeCallback = cb }

// SetCloseCallback installs the callback invoked on peer hang-up.
func (c *Channel) SetCloseCallback(cb func()) { c.closeCallback = cb }

// SetErrorCallback installs the callback invoked on an error condition.
func (c *Channel) SetErrorCallback(cb func()) { c.errorCallback = cb }

// EnableReading adds the read interest and propagates to the loop's
// multiplexer. Idempotent: calling it twice leaves the interest set
// unchanged.
func (c *Channel) EnableReading() {
	c.events |= readEvent
	c.update()
}

// DisableReading removes the read interest.
func (c *Channel) DisableReading() {
	c.events &^= readEvent
	c.update()
}

// EnableWriting adds the write interest.
func (c *Channel) EnableWriting() {
	c.events |= writeEvent
	c.update()
}

// DisableWriting removes the write interest.
func (c *Channel) DisableWriting() {
	c.events &^= writeEvent
	c.update()
}

// DisableAll clears every interest.
func (c *Channel) DisableAll() {
	c.events = noneEvent
	c.update()
}

// IsWriting reports whether the write interest is currently enabled.
func (c *Channel) IsWriting() bool {
	return c.events&writeEvent != 0
}

// IsReading reports whether the read interest is currently enabled.
func (c *Channel) IsReading() bool {
	return c.events&readEvent != 0
}

// IsNoneEvent reports whether no interest is currently enabled.
func (c *Channel) IsNoneEvent() bool {
	return c.events == noneEvent
}

func (c *Channel) update() {
	c.addedToLoop = true
	c.loop.updateChannel(c)
}

// Remove detaches the Channel from its loop's multiplexer. Must be called
// before the Channel (or its owning object) is discarded.
func (c *Channel) Remove() {
	c.addedToLoop = false
	c.loop.removeChannel(c)
}

// HandleEvent is the dispatch entry point invoked by the owning EventLoop for
// every Channel reported ready by a poll call. The dispatch order is:
//
//  1. HUP without IN: close callback only, return immediately.
//  2. ERR: error callback.
//  3. IN | PRI: read callback.
//  4. OUT: write callback.
//
// Steps 2-4 are independent; more than one callback may fire for a single
// revents mask.
func (c *Channel) HandleEvent(receiveTime Timestamp) {
	if c.tied && c.aliveCheck != nil && !c.aliveCheck() {
		// The owner has been destroyed; drop the event silently.
		return
	}
	c.handleEventWithGuard(receiveTime)
}

func (c *Channel) handleEventWithGuard(receiveTime Timestamp) {
	c.eventHandling = true
	defer func() { c.eventHandling = false }()

	if c.revents&uint32(unix.EPOLLHUP) != 0 && c.revents&uint32(unix.EPOLLIN) == 0 {
		if c.closeCallback != nil {
			c.closeCallback()
		}
		return
	}
	if c.revents&uint32(unix.EPOLLERR) != 0 {
		if c.errorCallback != nil {
			c.errorCallback()
		}
	}
	if c.revents&(uint32(unix.EPOLLIN)|uint32(unix.EPOLLPRI)) != 0 {
		if c.readCallback != nil {
			c.readCallback(receiveTime)
		}
	}
	if c.revents&uint32(unix.EPOLLOUT) != 0 {
		if c.writeCallback != nil {
			c.writeCallback()
		}
	}
}
