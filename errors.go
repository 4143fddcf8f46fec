package reactor

import "errors"

// Standard errors returned by the EventLoop.
var (
	// ErrLoopAlreadyRunning is returned when Loop is called on an EventLoop
	// that is already running.
	ErrLoopAlreadyRunning = errors.New("reactor: loop is already running")

	// ErrLoopClosed denotes an EventLoop that has already quit. No
	// EventLoop method returns it.
	ErrLoopClosed = errors.New("reactor: loop is closed")

	// ErrNotInLoopThread indicates a fatal programmer error: loop-owned
	// state was touched from a goroutine other than the loop's own.
	ErrNotInLoopThread = errors.New("reactor: operation must run on the owning loop's goroutine")
)

// Standard errors returned by the Multiplexer.
var (
	// ErrFDOutOfRange denotes a Channel fd outside the multiplexer's
	// supported range. EpollPoller keys Channels by fd in a map and never
	// returns it.
	ErrFDOutOfRange = errors.New("reactor: fd out of range")

	// ErrPollerClosed denotes a multiplexer that has already been closed.
	// EpollPoller never returns it.
	ErrPollerClosed = errors.New("reactor: poller closed")
)

// Standard errors returned by the TimerQueue.
var (
	// ErrTimerNotFound denotes an unknown TimerID. TimerQueue.Cancel does
	// not return it: Cancel has no result and treats an unknown id as a
	// no-op.
	ErrTimerNotFound = errors.New("reactor: timer not found")
)

// Standard errors returned by the ConsistentHash ring.
var (
	// ErrRingEmpty is returned by GetNode when no physical node has been
	// added to the ring yet.
	ErrRingEmpty = errors.New("reactor: consistent hash ring is empty")
)

// Standard errors returned by TcpConnection.
var (
	// ErrConnectionClosed is returned by Send when the connection is not
	// in the connected state.
	ErrConnectionClosed = errors.New("reactor: connection is not connected")
)

// Standard errors returned by EventLoopThreadPool.
var (
	// ErrPoolNotStarted denotes a pool used before Start. GetNextLoop does
	// not return it: it has no error result and returns the base loop
	// while the pool has no worker loops.
	ErrPoolNotStarted = errors.New("reactor: thread pool has not been started")
)
