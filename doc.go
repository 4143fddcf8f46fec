// Package reactor is a non-blocking TCP networking runtime built around the
// reactor pattern: one EventLoop per goroutine, each owning a Multiplexer
// (epoll on Linux), a TimerQueue, and a set of Channels multiplexing socket
// readiness onto user callbacks.
//
// A typical server constructs an Acceptor bound to a listening address, an
// EventLoopThreadPool to spread accepted connections across worker loops,
// and wires TcpConnection callbacks (ConnectionCallback, MessageCallback,
// CloseCallback) before calling the base loop's Loop method. Every callback
// for a given connection runs on that connection's owning loop goroutine for
// its entire lifetime; apart from Connected, Send, Shutdown and SendFile,
// nothing about a TcpConnection is safe to touch from any other goroutine
// except through RunInLoop/QueueInLoop.
package reactor
