//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package stream

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const haveQueued = true

// queued returns the number of bytes waiting in the socket's receive
// queue.
func queued(raw syscall.RawConn) (int, error) {
	var (
		n    int
		qerr error
	)
	if err := raw.Control(func(fd uintptr) {
		n, qerr = unix.IoctlGetInt(int(fd), ioctlQueued)
	}); err != nil {
		return 0, err
	}
	return n, qerr
}
