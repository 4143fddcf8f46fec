//go:build linux

package reactor

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const initEventListSize = 16

// EpollPoller is the Linux epoll-backed Multiplexer. A Channel's address is
// stored in the kernel event's user-data pointer so readiness dispatch is
// O(1); the Channel's own state index (new/added/deleted) discriminates
// ADD/MOD/DEL, matching the reference EPollPoller.
type EpollPoller struct {
	epollFD  int
	channels map[int]*Channel
	events   []unix.EpollEvent
	logger   Logger
}

// NewEpollPoller creates an epoll instance.
func NewEpollPoller(logger Logger) (*EpollPoller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &EpollPoller{
		epollFD:  fd,
		channels: make(map[int]*Channel),
		events:   make([]unix.EpollEvent, initEventListSize),
		logger:   logger,
	}, nil
}

// Poll implements Multiplexer.
func (p *EpollPoller) Poll(timeoutMs int, activeChannels *[]*Channel) (Timestamp, error) {
	n, err := unix.EpollWait(p.epollFD, p.events, timeoutMs)
	now := Now()
	if err != nil {
		if err == unix.EINTR {
			// EINTR on poll is silent.
			return now, nil
		}
		return now, err
	}

	if n > 0 {
		p.fillActiveChannels(n, activeChannels)
		if n == len(p.events) {
			// Double the buffer to keep up with a growing fd count.
			p.events = make([]unix.EpollEvent, len(p.events)*2)
		}
	}

	return now, nil
}

func (p *EpollPoller) fillActiveChannels(n int, activeChannels *[]*Channel) {
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		ch := getChannelPointer(ev)
		ch.SetRevents(ev.Events)
		*activeChannels = append(*activeChannels, ch)
	}
}

// setChannelPointer stashes ch's address in ev's kernel user-data union.
// x/sys/unix splits that union into Fd/Pad int32 fields rather than
// exposing it as a single 8-byte slot, so a 64-bit pointer is written
// across both by reinterpreting the address of Fd as a *uintptr; the
// layout is contiguous on every Linux architecture Go targets. The
// Channel itself stays reachable for the garbage collector via
// EpollPoller.channels, so storing its address as a bit pattern here is
// safe.
func setChannelPointer(ev *unix.EpollEvent, ch *Channel) {
	*(*uintptr)(unsafe.Pointer(&ev.Fd)) = uintptr(unsafe.Pointer(ch))
}

// getChannelPointer recovers the Channel stashed by setChannelPointer.
func getChannelPointer(ev *unix.EpollEvent) *Channel {
	return (*Channel)(unsafe.Pointer(*(*uintptr)(unsafe.Pointer(&ev.Fd))))
}

// UpdateChannel implements Multiplexer.
func (p *EpollPoller) UpdateChannel(ch *Channel) error {
	switch ch.state {
	case channelStateNew, channelStateDeleted:
		if ch.state == channelStateNew {
			p.channels[ch.fd] = ch
		}
		ch.state = channelStateAdded
		return p.ctl(unix.EPOLL_CTL_ADD, ch)
	default: // channelStateAdded
		if ch.IsNoneEvent() {
			if err := p.ctl(unix.EPOLL_CTL_DEL, ch); err != nil {
				// DEL failure is logged and ignored; the fd may already be closed.
				p.logger.Log(LogEntry{Level: LevelWarn, Category: "poll", Message: "epoll_ctl del failed", Err: err})
			}
			ch.state = channelStateDeleted
			return nil
		}
		return p.ctl(unix.EPOLL_CTL_MOD, ch)
	}
}

// RemoveChannel implements Multiplexer.
func (p *EpollPoller) RemoveChannel(ch *Channel) error {
	delete(p.channels, ch.fd)
	if ch.state == channelStateAdded {
		if err := p.ctl(unix.EPOLL_CTL_DEL, ch); err != nil {
			p.logger.Log(LogEntry{Level: LevelWarn, Category: "poll", Message: "epoll_ctl del failed", Err: err})
		}
	}
	ch.state = channelStateNew
	return nil
}

// Close implements Multiplexer.
func (p *EpollPoller) Close() error {
	return unix.Close(p.epollFD)
}

func (p *EpollPoller) ctl(op int, ch *Channel) error {
	var ev unix.EpollEvent
	ev.Events = ch.events
	setChannelPointer(&ev, ch)

	err := unix.EpollCtl(p.epollFD, op, ch.fd, &ev)
	if err != nil && op != unix.EPOLL_CTL_DEL {
		// ADD/MOD failure indicates a programmer error (bad fd, duplicate
		// registration); this is fatal per the failure-semantics contract.
		panic("reactor: epoll_ctl add/mod failed: " + err.Error())
	}
	return err
}
