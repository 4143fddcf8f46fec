//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// createTimerfd creates a monotonic, non-blocking timerfd.
func createTimerfd() (int, error) {
	return unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
}

// resetTimerfd arms fd to fire once at expiration, clamping the minimum
// delay to 100us so a just-missed or already-past expiration still
// triggers an immediate epoll readiness instead of silently arming a
// zero-length (disarmed) timer.
func resetTimerfd(fd int, expiration Timestamp) error {
	d := expiration.Sub(Now())
	if d < 100*time.Microsecond {
		d = 100 * time.Microsecond
	}
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(d.Nanoseconds()),
	}
	return unix.TimerfdSettime(fd, 0, &spec, nil)
}

// readTimerfd drains the expiration counter written by the kernel,
// preventing epoll from reporting the same timerfd readiness twice.
func readTimerfd(fd int) error {
	var buf [8]byte
	_, err := unix.Read(fd, buf[:])
	return err
}
