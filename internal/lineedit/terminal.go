// Package lineedit is the command-line front end: it echoes keystrokes,
// keeps an editable history and renders server output between prompts.
//
// History holds one byte slice per command.  The last entry is the one
// being typed; earlier entries are immutable.  The cursor selects the
// entry on display and is clamped to the history bounds.
package lineedit

import (
	"sync"

	"github.com/fatih/color"
)

// Control sequences.
const (
	clearLine = "\r\x1b[2K"
	eraseLeft = "\x1b[D\x1b[K"

	glyphIn  = " → " // →
	glyphOut = " ← " // ←

	keyDEL = 0x7f
	keyESC = 0x1b
)

// Output is where rendered bytes go; the console channel satisfies it.
type Output interface {
	Write(b []byte, toError bool) bool
}

// Terminal is the line editor.  It is not safe for concurrent use; the
// session router owns it.
type Terminal struct {
	out  Output
	mode Mode

	history [][]byte
	cursor  int

	promptIn  []byte
	promptOut []byte

	closeOnce sync.Once
	closeErr  error
}

// Option customises a Terminal.
type Option func(*Terminal)

// WithColors renders the input glyph with in and the output glyph with
// out.
func WithColors(in, out *color.Color) Option {
	return func(t *Terminal) {
		t.promptIn = []byte(clearLine + in.Sprint(glyphIn))
		t.promptOut = []byte(clearLine + out.Sprint(glyphOut))
	}
}

// DefaultColors returns the colours used by -c.
func DefaultColors() (in, out *color.Color) {
	return color.New(color.FgGreen, color.Bold), color.New(color.FgCyan)
}

// New enters raw mode through mode and returns an editor with a single
// empty entry.  On failure the terminal is left as it was.
func New(out Output, mode Mode, opts ...Option) (*Terminal, error) {
	if mode == nil {
		mode = NopMode{}
	}
	if err := mode.MakeRaw(); err != nil {
		return nil, err
	}
	t := &Terminal{
		out:       out,
		mode:      mode,
		history:   [][]byte{{}},
		promptIn:  []byte(clearLine + glyphIn),
		promptOut: []byte(clearLine + glyphOut),
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// ── Input ────────────────────────────────────────────────────────────

// Process handles one chunk of keyboard input and reports whether it
// completed a command line.  Dispatch is on the chunk's first byte.
func (t *Terminal) Process(chunk []byte) bool {
	if len(chunk) == 0 {
		return false
	}
	if len(t.history[t.cursor]) == 0 {
		t.write(t.promptIn)
	}

	switch c := chunk[0]; {
	case c == keyDEL:
		t.backspace()
	case c == keyESC:
		t.escape(chunk)
	case c == '\r' || c == '\n':
		return t.complete()
	case c < 0x20:
		// other control keys are ignored
	default:
		t.insert(chunk)
		if last := chunk[len(chunk)-1]; last == '\r' || last == '\n' {
			return t.complete()
		}
	}
	return false
}

func (t *Terminal) backspace() {
	t.detach()
	e := t.history[t.cursor]
	if len(e) == 0 {
		return
	}
	t.history[t.cursor] = e[:len(e)-1]
	t.write([]byte(eraseLeft))
}

// escape handles arrow keys.  Only a complete three-byte sequence is
// recognised; Right and Left are accepted but do nothing.
func (t *Terminal) escape(chunk []byte) {
	if len(chunk) != 3 || chunk[1] != '[' {
		return
	}
	switch chunk[2] {
	case 'A':
		t.moveTo(t.cursor - 1)
	case 'B':
		t.moveTo(t.cursor + 1)
	case 'C', 'D':
	}
}

func (t *Terminal) insert(chunk []byte) {
	t.detach()
	echo := make([]byte, 0, len(chunk))
	for _, b := range chunk {
		if b < 0x20 || b == keyDEL {
			continue
		}
		echo = append(echo, b)
	}
	if len(echo) == 0 {
		return
	}
	t.history[t.cursor] = append(t.history[t.cursor], echo...)
	t.write(echo)
}

func (t *Terminal) complete() bool {
	t.detach()
	if len(t.history[t.cursor]) == 0 {
		return false
	}
	t.write([]byte{'\n'})
	t.history = append(t.history, []byte{})
	t.cursor = len(t.history) - 1
	return true
}

// detach makes the entry on display editable: a recalled entry is
// copied over the trailing one so completed history never changes.
func (t *Terminal) detach() {
	last := len(t.history) - 1
	if t.cursor == last {
		return
	}
	t.history[last] = append([]byte(nil), t.history[t.cursor]...)
	t.cursor = last
}

func (t *Terminal) moveTo(i int) {
	if i < 0 {
		i = 0
	}
	if last := len(t.history) - 1; i > last {
		i = last
	}
	t.cursor = i
	t.write(t.promptIn)
	t.write(t.history[t.cursor])
}

// ── Queries ──────────────────────────────────────────────────────────

// Get returns a copy of the entry just before the cursor, which after a
// completed line is that line.  Empty at the start of history.
func (t *Terminal) Get() []byte {
	if t.cursor == 0 {
		return []byte{}
	}
	return append([]byte(nil), t.history[t.cursor-1]...)
}

// Current returns a copy of the entry on display.
func (t *Terminal) Current() []byte {
	return append([]byte(nil), t.history[t.cursor]...)
}

// Len returns the number of history entries, including the trailing one.
func (t *Terminal) Len() int { return len(t.history) }

// Cursor returns the index of the entry on display.
func (t *Terminal) Cursor() int { return t.cursor }

// ── Rendering ────────────────────────────────────────────────────────

// Output renders b received from the server on its own line.
func (t *Terminal) Output(b []byte) {
	buf := make([]byte, 0, len(t.promptOut)+len(b)+1)
	buf = append(buf, t.promptOut...)
	buf = append(buf, b...)
	buf = append(buf, '\n')
	t.write(buf)
}

// Ready shows the input prompt again.
func (t *Terminal) Ready() {
	t.write(t.promptIn)
}

// Close restores the terminal.  Only the first call touches the
// terminal; every call returns that call's result.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.mode.Restore()
	})
	return t.closeErr
}

func (t *Terminal) write(b []byte) {
	t.out.Write(b, false)
}
