// Package reactor: I/O multiplexing contract.
//
// A Multiplexer is the readiness oracle consumed by EventLoop. The reference
// implementation ([EpollPoller]) is backed by Linux epoll; per spec, no
// cross-platform multiplexer selection is supported, so this is the only
// backend.
package reactor

// Multiplexer is the abstract readiness interface an EventLoop polls each
// iteration. Every method (except Poll's blocking wait itself) must be
// called from the owning loop's goroutine.
type Multiplexer interface {
	// Poll blocks up to timeoutMs (negative: indefinite, 0: non-blocking)
	// waiting for any registered Channel's fd to become ready. On return,
	// it appends every Channel whose fd fired to activeChannels, with that
	// Channel's revents set to the reported mask, and returns the
	// timestamp captured immediately after the kernel call returned.
	Poll(timeoutMs int, activeChannels *[]*Channel) (Timestamp, error)

	// UpdateChannel reconciles the kernel interest set with ch.Events().
	UpdateChannel(ch *Channel) error

	// RemoveChannel evicts ch from the multiplexer's internal map and, if
	// registered, from the kernel interest set.
	RemoveChannel(ch *Channel) error

	// Close releases the multiplexer's own kernel resources (e.g. the
	// epoll fd).
	Close() error
}
