package reactor

import (
	"sync"
)

// ThreadInitCallback runs once on a new EventLoopThread's own goroutine,
// before the loop starts polling.
type ThreadInitCallback func(*EventLoop)

// EventLoopThread pairs one goroutine with one EventLoop for its entire
// lifetime ("one loop per thread"). StartLoop blocks the caller until
// the loop has been constructed and is about to start polling.
type EventLoopThread struct {
	name     string
	callback ThreadInitCallback

	mu      sync.Mutex
	cond    *sync.Cond
	loop    *EventLoop
	exiting bool
	done    chan struct{}
}

// NewEventLoopThread constructs an EventLoopThread. cb may be nil.
func NewEventLoopThread(name string, cb ThreadInitCallback) *EventLoopThread {
	t := &EventLoopThread{
		name:     name,
		callback: cb,
		done:     make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// StartLoop spawns the goroutine running this thread's EventLoop and
// blocks until that loop exists, returning it. Safe to call at most
// once.
func (t *EventLoopThread) StartLoop() *EventLoop {
	go t.threadFunc()

	t.mu.Lock()
	for t.loop == nil {
		t.cond.Wait()
	}
	loop := t.loop
	t.mu.Unlock()

	return loop
}

func (t *EventLoopThread) threadFunc() {
	loop, err := NewEventLoop(t.name)
	if err != nil {
		panic("reactor: failed to construct loop for " + t.name + ": " + err.Error())
	}

	if t.callback != nil {
		t.callback(loop)
	}

	t.mu.Lock()
	t.loop = loop
	t.cond.Signal()
	t.mu.Unlock()

	_ = loop.Loop()

	t.mu.Lock()
	t.loop = nil
	t.mu.Unlock()
	close(t.done)
}

// Stop requests the thread's loop quit and blocks until its goroutine
// has returned. A no-op if the loop never started.
func (t *EventLoopThread) Stop() {
	t.mu.Lock()
	t.exiting = true
	loop := t.loop
	t.mu.Unlock()

	if loop == nil {
		return
	}
	loop.Quit()
	<-t.done
}
