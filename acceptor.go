package reactor

import (
	"net"

	"golang.org/x/sys/unix"
)

// NewConnectionCallback receives a freshly accepted connection's fd and
// the peer's address.
type NewConnectionCallback func(fd int, peerAddr *net.TCPAddr)

// Acceptor owns a non-blocking listening socket and the Channel that
// watches it for read-readiness. Every accepted connection is handed to
// NewConnectionCallback; with none installed, the fd is simply closed.
type Acceptor struct {
	loop       *EventLoop
	logger     Logger
	listenFd   int
	channel    *Channel
	listening  bool
	acceptRate *CatrateLimiter

	// idleFd is a spare, already-open fd held in reserve. When accept
	// fails with EMFILE (the process is out of descriptors), the spare
	// is closed to free one slot, the pending connection is accepted
	// and immediately dropped, and the spare is reopened — preventing
	// the listening socket from being spun on in a busy loop of
	// failing accepts.
	idleFd int

	NewConnectionCallback NewConnectionCallback
}

// NewAcceptor binds a non-blocking listening socket to addr and wires
// its Channel, without starting to listen (see Listen).
func NewAcceptor(loop *EventLoop, addr *net.TCPAddr, opts ...AcceptorOption) (*Acceptor, error) {
	cfg := resolveAcceptorOptions(opts)

	fd, err := createNonblockingSocket()
	if err != nil {
		return nil, err
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if cfg.reusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			_ = unix.Close(fd)
			return nil, err
		}
	}

	sa, err := tcpAddrToSockaddr(addr)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	idleFd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	a := &Acceptor{
		loop:       loop,
		logger:     cfg.logger,
		listenFd:   fd,
		idleFd:     idleFd,
		acceptRate: cfg.acceptLimiter,
	}
	a.channel = NewChannel(loop, fd)
	a.channel.SetReadCallback(func(Timestamp) { a.handleRead() })

	return a, nil
}

// Listening reports whether Listen has been called.
func (a *Acceptor) Listening() bool { return a.listening }

// Listen starts listening on the bound socket and enables read-interest
// on its Channel. Must run on the owning loop's goroutine.
func (a *Acceptor) Listen() error {
	a.listening = true
	if err := unix.Listen(a.listenFd, unix.SOMAXCONN); err != nil {
		return err
	}
	a.channel.EnableReading()
	return nil
}

// Close stops watching the listening socket and releases both fds. Must
// run on the owning loop's goroutine.
func (a *Acceptor) Close() error {
	a.channel.DisableAll()
	a.channel.Remove()
	_ = unix.Close(a.idleFd)
	return unix.Close(a.listenFd)
}

func (a *Acceptor) handleRead() {
	connFd, peerSA, err := unix.Accept4(a.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EMFILE {
			a.recoverFromEMFILE()
		} else {
			a.logger.Log(LogEntry{Level: LevelError, Category: "accept", Message: "accept failed", Err: err})
		}
		return
	}

	peerAddr := sockaddrToTCPAddr(peerSA)

	if a.acceptRate != nil && !a.acceptRate.Allow(peerAddr.IP.String()) {
		_ = unix.Close(connFd)
		return
	}

	if a.NewConnectionCallback != nil {
		a.NewConnectionCallback(connFd, peerAddr)
	} else {
		_ = unix.Close(connFd)
	}
}

// recoverFromEMFILE implements the idleFd trick: give up one spare fd to
// accept (and immediately drop) the connection that triggered EMFILE,
// then reopen the spare so the next EMFILE can be handled the same way.
func (a *Acceptor) recoverFromEMFILE() {
	_ = unix.Close(a.idleFd)
	fd, _, err := unix.Accept(a.listenFd)
	if err == nil {
		_ = unix.Close(fd)
	}
	a.idleFd, _ = unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	a.logger.Log(LogEntry{Level: LevelWarn, Category: "accept", Message: "fd exhaustion recovered via idle fd"})
}

func createNonblockingSocket() (int, error) {
	return unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
}

func tcpAddrToSockaddr(addr *net.TCPAddr) (unix.Sockaddr, error) {
	sa := &unix.SockaddrInet4{Port: addr.Port}
	if ip := addr.IP.To4(); ip != nil {
		copy(sa.Addr[:], ip)
	}
	return sa, nil
}

func sockaddrToTCPAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: append(net.IP(nil), v.Addr[:]...), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append(net.IP(nil), v.Addr[:]...), Port: v.Port}
	default:
		return &net.TCPAddr{}
	}
}
