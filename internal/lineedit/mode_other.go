//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package lineedit

// RawMode returns a Mode for the terminal on fd.
func RawMode(fd int) Mode { return &fullRawMode{fd: fd} }
