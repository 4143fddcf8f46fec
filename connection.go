package reactor

import (
	"net"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

type connState int32

const (
	connStateConnecting connState = iota
	connStateConnected
	connStateDisconnecting
	connStateDisconnected
)

// ConnectionCallback is invoked when a connection becomes established
// and again when it becomes disconnected; Connected() distinguishes the
// two.
type ConnectionCallback func(conn *TcpConnection)

// MessageCallback is invoked whenever bytes are read from the peer.
type MessageCallback func(conn *TcpConnection, data *Buffer, receiveTime Timestamp)

// WriteCompleteCallback is invoked once all currently queued output has
// been flushed to the socket.
type WriteCompleteCallback func(conn *TcpConnection)

// HighWaterMarkCallback is invoked when the output buffer's size crosses
// the configured high-water mark from below to at-or-above.
type HighWaterMarkCallback func(conn *TcpConnection, size int)

// CloseCallback is invoked once a connection has fully transitioned to
// disconnected, after the user ConnectionCallback has already observed
// Connected() == false. Used internally by TcpServer-style owners to
// reap the connection from their registry; see cmd/echoserver.
type CloseCallback func(conn *TcpConnection)

// TcpConnection is a single established (or establishing) connection,
// owned by exactly one EventLoop for its entire lifetime. Every method
// that touches connection state must run on that loop's goroutine;
// Send, Shutdown and SendFile are the exceptions safe to call from any
// goroutine, since they funnel through RunInLoop.
type TcpConnection struct {
	loop   *EventLoop
	name   string
	fd     int
	logger Logger

	channel *Channel

	localAddr *net.TCPAddr
	peerAddr  *net.TCPAddr

	// state is touched from outside the loop goroutine by Connected and
	// Shutdown, so it is kept atomic rather than following the rest of
	// this struct's loop-thread-only discipline.
	state atomic.Int32

	inputBuffer  *Buffer
	outputBuffer *Buffer

	highWaterMark int

	ConnectionCallback     ConnectionCallback
	MessageCallback        MessageCallback
	WriteCompleteCallback  WriteCompleteCallback
	HighWaterMarkCallback  HighWaterMarkCallback
	CloseCallback          CloseCallback
}

// NewTcpConnection constructs a TcpConnection in the connecting state,
// wrapping an already-accepted, non-blocking fd. ConnectEstablished must
// be called on loop before the connection does anything useful.
func NewTcpConnection(loop *EventLoop, name string, fd int, localAddr, peerAddr *net.TCPAddr, opts ...ConnOption) *TcpConnection {
	cfg := resolveConnOptions(opts)

	c := &TcpConnection{
		loop:          loop,
		name:          name,
		fd:            fd,
		logger:        cfg.logger,
		localAddr:     localAddr,
		peerAddr:      peerAddr,
		inputBuffer:   NewBufferSize(cfg.readBufferHint),
		outputBuffer:  NewBuffer(),
		highWaterMark: cfg.highWaterMark,
	}
	c.state.Store(int32(connStateConnecting))

	c.channel = NewChannel(loop, fd)
	c.channel.SetReadCallback(c.handleRead)
	c.channel.SetWriteCallback(c.handleWrite)
	c.channel.SetCloseCallback(c.handleClose)
	c.channel.SetErrorCallback(c.handleError)

	return c
}

// Name returns the connection's diagnostic name.
func (c *TcpConnection) Name() string { return c.name }

// Loop returns the EventLoop this connection is bound to.
func (c *TcpConnection) Loop() *EventLoop { return c.loop }

// LocalAddr returns the local endpoint address.
func (c *TcpConnection) LocalAddr() *net.TCPAddr { return c.localAddr }

// PeerAddr returns the remote endpoint address.
func (c *TcpConnection) PeerAddr() *net.TCPAddr { return c.peerAddr }

// Connected reports whether the connection is currently in the
// connected state.
func (c *TcpConnection) Connected() bool { return connState(c.state.Load()) == connStateConnected }

// ConnectEstablished ties the connection's Channel to a weak guard on
// itself, transitions to connected, enables reading, and invokes the
// user ConnectionCallback. Must run on the owning loop's goroutine.
func (c *TcpConnection) ConnectEstablished() {
	c.loop.assertInLoopThread()
	if connState(c.state.Load()) != connStateConnecting {
		panic("reactor: ConnectEstablished called outside the connecting state")
	}

	TieChannel(c.channel, c)
	c.state.Store(int32(connStateConnected))
	c.channel.EnableReading()

	if c.ConnectionCallback != nil {
		c.ConnectionCallback(c)
	}
}

// ConnectDestroyed tears down the connection's Channel. Must run on the
// owning loop's goroutine, after handleClose (or directly, for a
// connection that never finished connecting).
func (c *TcpConnection) ConnectDestroyed() {
	c.loop.assertInLoopThread()
	if connState(c.state.Load()) == connStateConnected {
		c.state.Store(int32(connStateDisconnected))
		c.channel.DisableAll()
	}
	c.channel.Remove()
}

func (c *TcpConnection) handleRead(receiveTime Timestamp) {
	// Scatter-gather read: fill the input buffer's writable space first and
	// spill anything beyond it into a stack buffer, so one syscall can take
	// in up to 64KiB more than the buffer currently has room for.
	var extra [65536]byte
	buf := c.inputBuffer
	writable := buf.WritableBytes()
	n, err := unix.Readv(c.fd, [][]byte{buf.data[buf.writerIdx:], extra[:]})
	switch {
	case n > 0:
		if n <= writable {
			buf.writerIdx += n
		} else {
			buf.writerIdx = len(buf.data)
			buf.Append(extra[:n-writable])
		}
		if c.MessageCallback != nil {
			c.MessageCallback(c, c.inputBuffer, receiveTime)
		}
	case n == 0:
		c.handleClose()
	default:
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		c.logger.Log(LogEntry{Level: LevelError, Category: "conn", Message: "read failed", Err: err, ConnName: c.name})
		c.handleError()
	}
}

func (c *TcpConnection) handleWrite() {
	if !c.channel.IsWriting() {
		return
	}

	n, err := writeFD(c.fd, c.outputBuffer.Peek())
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		c.logger.Log(LogEntry{Level: LevelError, Category: "conn", Message: "write failed", Err: err, ConnName: c.name})
		return
	}

	c.outputBuffer.Retrieve(n)
	if c.outputBuffer.ReadableBytes() == 0 {
		c.channel.DisableWriting()
		if c.WriteCompleteCallback != nil {
			c.WriteCompleteCallback(c)
		}
		if connState(c.state.Load()) == connStateDisconnecting {
			c.shutdownInLoop()
		}
	}
}

func (c *TcpConnection) handleClose() {
	c.loop.assertInLoopThread()
	c.channel.DisableAll()
	c.state.Store(int32(connStateDisconnected))

	if c.ConnectionCallback != nil {
		c.ConnectionCallback(c)
	}
	if c.CloseCallback != nil {
		c.CloseCallback(c)
	}
}

func (c *TcpConnection) handleError() {
	c.logger.Log(LogEntry{Level: LevelWarn, Category: "conn", Message: "connection error", ConnName: c.name})
}

// Send queues data for delivery to the peer. Safe to call from any
// goroutine; on a thread other than the owning loop's, a copy of data
// is posted via RunInLoop.
func (c *TcpConnection) Send(data []byte) error {
	if !c.Connected() {
		return ErrConnectionClosed
	}
	if c.loop.IsInLoopThread() {
		c.sendInLoop(data)
		return nil
	}
	cp := append([]byte(nil), data...)
	c.loop.RunInLoop(func() { c.sendInLoop(cp) })
	return nil
}

func (c *TcpConnection) sendInLoop(data []byte) {
	if connState(c.state.Load()) == connStateDisconnected {
		return
	}

	remaining := data
	if !c.channel.IsWriting() && c.outputBuffer.ReadableBytes() == 0 {
		n, err := writeFD(c.fd, data)
		if err != nil && err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			c.logger.Log(LogEntry{Level: LevelError, Category: "conn", Message: "write failed", Err: err, ConnName: c.name})
			return
		}
		if n > 0 {
			remaining = data[n:]
			if len(remaining) == 0 {
				if c.WriteCompleteCallback != nil {
					c.WriteCompleteCallback(c)
				}
				return
			}
		}
	}

	if len(remaining) == 0 {
		return
	}

	before := c.outputBuffer.ReadableBytes()
	c.outputBuffer.Append(remaining)
	after := c.outputBuffer.ReadableBytes()
	if before < c.highWaterMark && after >= c.highWaterMark && c.HighWaterMarkCallback != nil {
		c.HighWaterMarkCallback(c, after)
	}
	if !c.channel.IsWriting() {
		c.channel.EnableWriting()
	}
}

// Shutdown closes the write half of the connection once any queued
// output has drained. Safe to call from any goroutine.
func (c *TcpConnection) Shutdown() {
	if !c.state.CompareAndSwap(int32(connStateConnected), int32(connStateDisconnecting)) {
		return
	}
	c.loop.RunInLoop(c.shutdownInLoop)
}

func (c *TcpConnection) shutdownInLoop() {
	if !c.channel.IsWriting() {
		_ = unix.Shutdown(c.fd, unix.SHUT_WR)
	}
}

// SendFile transfers count bytes from fileFd, starting at offset, to the
// peer using a zero-copy sendfile(2) call. Runs on the owning loop to
// stay atomic with respect to concurrent Send calls.
func (c *TcpConnection) SendFile(fileFd int, offset int64, count int) error {
	if c.loop.IsInLoopThread() {
		return c.sendFileInLoop(fileFd, offset, count)
	}
	errCh := make(chan error, 1)
	c.loop.RunInLoop(func() { errCh <- c.sendFileInLoop(fileFd, offset, count) })
	return <-errCh
}

func (c *TcpConnection) sendFileInLoop(fileFd int, offset int64, count int) error {
	if !c.Connected() {
		return ErrConnectionClosed
	}
	off := offset
	remaining := count
	for remaining > 0 {
		n, err := unix.Sendfile(c.fd, fileFd, &off, remaining)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				runtime.Gosched()
				continue
			}
			return err
		}
		if n == 0 {
			break
		}
		remaining -= n
	}
	return nil
}
