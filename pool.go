package reactor

import "fmt"

// EventLoopThreadPool spreads connections across a fixed set of worker
// EventLoopThreads, each paired with its own EventLoop, and routes a
// given key to a stable one of them via a consistent-hash ring. A pool
// with zero worker threads routes every key to its base loop instead —
// the "single-threaded server" configuration.
type EventLoopThreadPool struct {
	baseLoop *EventLoop
	name     string

	started bool
	hash    *ConsistentHash

	threads     []*EventLoopThread
	loops       []*EventLoop
	loopsByName map[string]*EventLoop
}

// NewEventLoopThreadPool constructs a pool whose GetNextLoop falls back
// to baseLoop until Start is called.
func NewEventLoopThreadPool(baseLoop *EventLoop, name string, opts ...PoolOption) *EventLoopThreadPool {
	cfg := resolvePoolOptions(opts)
	return &EventLoopThreadPool{
		baseLoop:    baseLoop,
		name:        name,
		hash:        NewConsistentHash(cfg.replicas),
		loopsByName: make(map[string]*EventLoop),
	}
}

// Start spawns numThreads worker EventLoopThreads named "<name>0".."<name>N-1",
// running cb (if non-nil) once on each new loop before it starts
// polling. If numThreads is zero, cb instead runs once directly on
// baseLoop and every GetNextLoop call returns baseLoop.
func (p *EventLoopThreadPool) Start(numThreads int, cb ThreadInitCallback) {
	p.started = true

	for i := 0; i < numThreads; i++ {
		name := fmt.Sprintf("%s%d", p.name, i)
		t := NewEventLoopThread(name, cb)
		loop := t.StartLoop()

		p.threads = append(p.threads, t)
		p.loops = append(p.loops, loop)
		p.loopsByName[name] = loop
		p.hash.AddNode(name)
	}

	if numThreads == 0 && cb != nil {
		cb(p.baseLoop)
	}
}

// GetNextLoop returns the worker loop key consistently hashes to, or
// baseLoop if the pool has no worker threads.
func (p *EventLoopThreadPool) GetNextLoop(key string) *EventLoop {
	if len(p.loops) == 0 {
		return p.baseLoop
	}
	name, err := p.hash.GetNode(key)
	if err != nil {
		return p.baseLoop
	}
	loop, ok := p.loopsByName[name]
	if !ok {
		return p.baseLoop
	}
	return loop
}

// GetAllLoops returns every worker loop, or a single-element slice
// holding baseLoop if the pool has no worker threads.
func (p *EventLoopThreadPool) GetAllLoops() []*EventLoop {
	if len(p.loops) == 0 {
		return []*EventLoop{p.baseLoop}
	}
	return p.loops
}

// Stop requests every worker thread's loop quit and waits for each to
// return.
func (p *EventLoopThreadPool) Stop() {
	for _, t := range p.threads {
		t.Stop()
	}
}
