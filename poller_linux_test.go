//go:build linux

package reactor

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEpollPollerChannelPointerRoundTrips(t *testing.T) {
	ch := NewChannel(nil, 42)
	var ev unix.EpollEvent
	setChannelPointer(&ev, ch)
	require.Same(t, ch, getChannelPointer(&ev))
}

func TestEpollPollerAddPollRemove(t *testing.T) {
	p, err := NewEpollPoller(nil)
	require.NoError(t, err)
	defer p.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ch := NewChannel(nil, int(r.Fd()))
	ch.events = readEvent
	require.NoError(t, p.UpdateChannel(ch))

	var active []*Channel
	_, err = p.Poll(10, &active)
	require.NoError(t, err)
	require.Empty(t, active)

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		active = active[:0]
		_, err := p.Poll(50, &active)
		require.NoError(t, err)
		return len(active) == 1 && active[0] == ch
	}, time.Second, 10*time.Millisecond)

	ch.events = noneEvent
	require.NoError(t, p.UpdateChannel(ch))
}
