// Command echoserver runs a trivial echo protocol on top of the reactor
// runtime: every connection's bytes are written straight back to it.
// It demonstrates wiring an Acceptor through an EventLoopThreadPool into
// per-connection TcpConnections.
package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	reactor "github.com/joeycumines/go-reactor"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9981", "listen address")
	threads := flag.Int("threads", 4, "worker loop count")
	flag.Parse()

	logger := reactor.NewDefaultLogger(reactor.LevelInfo)
	logger.Out = os.Stderr

	baseLoop, err := reactor.NewEventLoop("main", reactor.WithLoopLogger(logger))
	if err != nil {
		logger.Log(reactor.LogEntry{Level: reactor.LevelError, Category: "main", Message: "failed to create base loop", Err: err})
		os.Exit(1)
	}

	pool := reactor.NewEventLoopThreadPool(baseLoop, "echo-worker-", reactor.WithPoolLogger(logger))
	pool.Start(*threads, nil)

	tcpAddr, err := net.ResolveTCPAddr("tcp", *addr)
	if err != nil {
		logger.Log(reactor.LogEntry{Level: reactor.LevelError, Category: "main", Message: "invalid listen address", Err: err})
		os.Exit(1)
	}

	acceptor, err := reactor.NewAcceptor(baseLoop, tcpAddr, reactor.WithAcceptorLogger(logger))
	if err != nil {
		logger.Log(reactor.LogEntry{Level: reactor.LevelError, Category: "main", Message: "failed to create acceptor", Err: err})
		os.Exit(1)
	}

	var (
		mu    sync.Mutex
		conns = make(map[string]*reactor.TcpConnection)
		seq   int
	)

	acceptor.NewConnectionCallback = func(fd int, peerAddr *net.TCPAddr) {
		loop := pool.GetNextLoop(peerAddr.String())
		loop.RunInLoop(func() {
			mu.Lock()
			seq++
			name := peerAddr.String()
			mu.Unlock()

			conn := reactor.NewTcpConnection(loop, name, fd, tcpAddr, peerAddr, reactor.WithConnLogger(logger))

			conn.MessageCallback = func(c *reactor.TcpConnection, data *reactor.Buffer, _ reactor.Timestamp) {
				_ = c.Send(data.RetrieveAllBytes())
			}
			conn.CloseCallback = func(c *reactor.TcpConnection) {
				mu.Lock()
				delete(conns, c.Name())
				mu.Unlock()
				c.ConnectDestroyed()
			}

			mu.Lock()
			conns[name] = conn
			mu.Unlock()

			conn.ConnectEstablished()
		})
	}

	if err := acceptor.Listen(); err != nil {
		logger.Log(reactor.LogEntry{Level: reactor.LevelError, Category: "main", Message: "failed to listen", Err: err})
		os.Exit(1)
	}

	logger.Log(reactor.LogEntry{Level: reactor.LevelInfo, Category: "main", Message: "echoserver listening on " + *addr})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		baseLoop.Quit()
	}()

	if err := baseLoop.Loop(); err != nil {
		logger.Log(reactor.LogEntry{Level: reactor.LevelError, Category: "main", Message: "loop exited with error", Err: err})
	}

	pool.Stop()
	_ = acceptor.Close()
	_ = baseLoop.Close()
}
