//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package stream

// ioctlQueued is FIONREAD (_IOR('f', 127, int) in <sys/filio.h>), which
// x/sys/unix does not export on these platforms.
const ioctlQueued = 0x4004667f
