package reactor

import "time"

// loopOptions holds configuration for NewEventLoop.
type loopOptions struct {
	logger      Logger
	pollTimeout time.Duration
}

// LoopOption configures an EventLoop instance.
type LoopOption interface {
	applyLoop(*loopOptions)
}

type loopOptionFunc func(*loopOptions)

func (f loopOptionFunc) applyLoop(o *loopOptions) { f(o) }

// WithLoopLogger installs the Logger used for poll/timer/loop diagnostics.
func WithLoopLogger(logger Logger) LoopOption {
	return loopOptionFunc(func(o *loopOptions) { o.logger = logger })
}

// WithPollTimeout bounds how long a single Poll call may block when no
// timer is pending sooner. The reference implementation uses a fixed
// 10000ms ceiling; this exposes it for tests that want tighter bounds.
func WithPollTimeout(d time.Duration) LoopOption {
	return loopOptionFunc(func(o *loopOptions) { o.pollTimeout = d })
}

func resolveLoopOptions(opts []LoopOption) *loopOptions {
	cfg := &loopOptions{
		logger:      NewNoOpLogger(),
		pollTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyLoop(cfg)
		}
	}
	return cfg
}

// connOptions holds configuration for NewTcpConnection.
type connOptions struct {
	logger         Logger
	highWaterMark  int
	readBufferHint int
}

// ConnOption configures a TcpConnection instance.
type ConnOption interface {
	applyConn(*connOptions)
}

type connOptionFunc func(*connOptions)

func (f connOptionFunc) applyConn(o *connOptions) { f(o) }

// WithConnLogger installs the Logger used for connection-lifecycle
// diagnostics.
func WithConnLogger(logger Logger) ConnOption {
	return connOptionFunc(func(o *connOptions) { o.logger = logger })
}

// WithHighWaterMark sets the output buffer size, in bytes, at or above
// which HighWaterMarkCallback fires. The default, 64MiB, matches the reference
// implementation.
func WithHighWaterMark(bytes int) ConnOption {
	return connOptionFunc(func(o *connOptions) { o.highWaterMark = bytes })
}

// WithReadBufferHint sets the initial capacity reserved in a connection's
// input Buffer.
func WithReadBufferHint(bytes int) ConnOption {
	return connOptionFunc(func(o *connOptions) { o.readBufferHint = bytes })
}

func resolveConnOptions(opts []ConnOption) *connOptions {
	cfg := &connOptions{
		logger:         NewNoOpLogger(),
		highWaterMark:  64 * 1024 * 1024,
		readBufferHint: initialBufferSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyConn(cfg)
		}
	}
	return cfg
}

// poolOptions holds configuration for NewEventLoopThreadPool.
type poolOptions struct {
	logger   Logger
	replicas int
}

// PoolOption configures an EventLoopThreadPool instance.
type PoolOption interface {
	applyPool(*poolOptions)
}

type poolOptionFunc func(*poolOptions)

func (f poolOptionFunc) applyPool(o *poolOptions) { f(o) }

// WithPoolLogger sets the pool's Logger option. EventLoopThreadPool does
// not use it: the pool itself does not log, and the worker loops it starts
// are built without it, so they log to their default NoOpLogger.
func WithPoolLogger(logger Logger) PoolOption {
	return poolOptionFunc(func(o *poolOptions) { o.logger = logger })
}

// WithReplicas sets the number of virtual nodes placed per worker loop on
// the pool's consistent-hash ring.
func WithReplicas(n int) PoolOption {
	return poolOptionFunc(func(o *poolOptions) { o.replicas = n })
}

func resolvePoolOptions(opts []PoolOption) *poolOptions {
	cfg := &poolOptions{
		logger:   NewNoOpLogger(),
		replicas: defaultReplicas,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyPool(cfg)
		}
	}
	return cfg
}

// acceptorOptions holds configuration for NewAcceptor.
type acceptorOptions struct {
	logger        Logger
	reusePort     bool
	acceptLimiter *CatrateLimiter
}

// AcceptorOption configures an Acceptor instance.
type AcceptorOption interface {
	applyAcceptor(*acceptorOptions)
}

type acceptorOptionFunc func(*acceptorOptions)

func (f acceptorOptionFunc) applyAcceptor(o *acceptorOptions) { f(o) }

// WithAcceptorLogger installs the Logger used for accept-loop diagnostics.
func WithAcceptorLogger(logger Logger) AcceptorOption {
	return acceptorOptionFunc(func(o *acceptorOptions) { o.logger = logger })
}

// WithReusePort enables SO_REUSEPORT on the listening socket, letting
// multiple Acceptor instances (typically one per CPU) share a single
// address.
func WithReusePort(enabled bool) AcceptorOption {
	return acceptorOptionFunc(func(o *acceptorOptions) { o.reusePort = enabled })
}

// WithAcceptRateLimiter attaches a rate limiter to the accept loop; once
// its budget for the connecting peer's category is exhausted, newly
// accepted connections are closed immediately instead of being handed to
// a worker loop. See NewCatrateLimiter.
func WithAcceptRateLimiter(limiter *CatrateLimiter) AcceptorOption {
	return acceptorOptionFunc(func(o *acceptorOptions) { o.acceptLimiter = limiter })
}

func resolveAcceptorOptions(opts []AcceptorOption) *acceptorOptions {
	cfg := &acceptorOptions{
		logger: NewNoOpLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyAcceptor(cfg)
		}
	}
	return cfg
}
