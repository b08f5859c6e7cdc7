package lineedit

import (
	"sync"

	"golang.org/x/term"

	"imapcli/internal/errors"
)

// Mode switches the terminal line discipline.  MakeRaw is called once
// by New; Restore may be called any number of times but only the first
// call has an effect.
type Mode interface {
	MakeRaw() error
	Restore() error
}

// IsTerminal reports whether fd refers to a terminal.
func IsTerminal(fd int) bool { return term.IsTerminal(fd) }

// NopMode leaves the terminal untouched.  Used when input is not a tty
// or raw mode could not be entered.
type NopMode struct{}

func (NopMode) MakeRaw() error { return nil }
func (NopMode) Restore() error { return nil }

// fullRawMode uses term.MakeRaw, which also disables signal keys and
// output processing.  It is the fallback on platforms without termios.
type fullRawMode struct {
	fd    int
	state *term.State
	once  sync.Once
	err   error
}

func (m *fullRawMode) MakeRaw() error {
	st, err := term.MakeRaw(m.fd)
	if err != nil {
		return &errors.TerminalModeError{Op: "enter", Err: err}
	}
	m.state = st
	return nil
}

func (m *fullRawMode) Restore() error {
	m.once.Do(func() {
		if m.state == nil {
			return
		}
		if err := term.Restore(m.fd, m.state); err != nil {
			m.err = &errors.TerminalModeError{Op: "restore", Err: err}
		}
	})
	return m.err
}
