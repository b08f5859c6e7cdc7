//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package stream

import (
	"errors"
	"syscall"
)

const haveQueued = false

func queued(syscall.RawConn) (int, error) { return 0, errors.ErrUnsupported }
