package reactor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventLoopThreadPoolZeroThreadsFallsBackToBaseLoop(t *testing.T) {
	base := newRunningLoop(t)
	pool := NewEventLoopThreadPool(base, "worker")
	pool.Start(0, nil)

	require.Same(t, base, pool.GetNextLoop("any-key"))
	require.Equal(t, []*EventLoop{base}, pool.GetAllLoops())
}

func TestEventLoopThreadPoolRoutesKeyToStableWorker(t *testing.T) {
	base := newRunningLoop(t)
	pool := NewEventLoopThreadPool(base, "worker")
	pool.Start(4, nil)
	t.Cleanup(pool.Stop)

	require.Len(t, pool.GetAllLoops(), 4)

	first := pool.GetNextLoop("10.0.0.5:1234")
	for i := 0; i < 50; i++ {
		require.Same(t, first, pool.GetNextLoop("10.0.0.5:1234"))
	}
}

func TestEventLoopThreadPoolDistributesAcrossWorkers(t *testing.T) {
	base := newRunningLoop(t)
	pool := NewEventLoopThreadPool(base, "worker")
	pool.Start(4, nil)
	t.Cleanup(pool.Stop)

	seen := make(map[*EventLoop]int)
	for i := 0; i < 200; i++ {
		loop := pool.GetNextLoop(fmt.Sprintf("client-%d:443", i))
		seen[loop]++
	}
	require.Greater(t, len(seen), 1)
}

func TestEventLoopThreadPoolStopStopsEveryWorker(t *testing.T) {
	base := newRunningLoop(t)
	pool := NewEventLoopThreadPool(base, "worker")
	pool.Start(3, nil)

	loops := pool.GetAllLoops()
	pool.Stop()

	for _, loop := range loops {
		require.Eventually(t, func() bool { return loop.goroutineID.Load() == 0 }, time.Second, time.Millisecond)
	}
}
