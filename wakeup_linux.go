//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

// createWakeFd creates an eventfd used to wake a blocked epoll_wait call
// from another goroutine.
func createWakeFd() (int, error) {
	return unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
}

// writeWakeFd signals fd, waking anyone blocked polling it.
func writeWakeFd(fd int) error {
	var one [8]byte
	one[0] = 1
	_, err := unix.Write(fd, one[:])
	return err
}

// drainWakeFd consumes the pending eventfd counter so the next poll doesn't
// immediately return again for the same wake-up.
func drainWakeFd(fd int) error {
	var buf [8]byte
	_, err := unix.Read(fd, buf[:])
	return err
}
