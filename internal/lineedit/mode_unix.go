//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package lineedit

import (
	"sync"

	"golang.org/x/sys/unix"

	"imapcli/internal/errors"
)

// termiosMode clears ICANON and ECHO only, so Ctrl-C still raises
// SIGINT and output newlines are still translated.
type termiosMode struct {
	fd    int
	saved *unix.Termios
	once  sync.Once
	err   error
}

// RawMode returns a Mode for the terminal on fd.
func RawMode(fd int) Mode { return &termiosMode{fd: fd} }

func (m *termiosMode) MakeRaw() error {
	t, err := unix.IoctlGetTermios(m.fd, ioctlGetTermios)
	if err != nil {
		return &errors.TerminalModeError{Op: "enter", Err: err}
	}
	saved := *t
	m.saved = &saved

	t.Lflag &^= unix.ICANON | unix.ECHO
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(m.fd, ioctlSetTermios, t); err != nil {
		return &errors.TerminalModeError{Op: "enter", Err: err}
	}
	return nil
}

func (m *termiosMode) Restore() error {
	m.once.Do(func() {
		if m.saved == nil {
			return
		}
		if err := unix.IoctlSetTermios(m.fd, ioctlSetTermios, m.saved); err != nil {
			m.err = &errors.TerminalModeError{Op: "restore", Err: err}
		}
	})
	return m.err
}
