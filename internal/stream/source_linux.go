//go:build linux

package stream

import "golang.org/x/sys/unix"

// ioctlQueued is FIONREAD; x/sys/unix exports it on Linux as TIOCINQ.
const ioctlQueued = unix.TIOCINQ
