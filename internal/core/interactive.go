package core

import (
	"context"
	"errors"
	"io"
	"os"

	"imapcli/internal/console"
	"imapcli/internal/lineedit"
	"imapcli/internal/metrics"
	"imapcli/internal/session"
	"imapcli/internal/stream"
	"imapcli/internal/transcript"
	"imapcli/internal/transport"
	"imapcli/util"
)

// InteractiveMode connects to an IMAP server and lets the user type
// commands against it with line editing and history.
type InteractiveMode struct {
	Host          string
	Port          int
	Dialer        transport.Dialer
	StreamOptions stream.Options
	EditorOptions []lineedit.Option
	Logger        *util.Logger
	Sink          transcript.Sink
	Metrics       *metrics.Collector

	// Stdin/Stdout/Stderr default to the process streams when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// TermMode overrides raw-mode handling.  When nil, raw mode is used
	// if stdin is a terminal.
	TermMode lineedit.Mode
}

var _ Mode = (*InteractiveMode)(nil)

func (m *InteractiveMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *InteractiveMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

func (m *InteractiveMode) stderr() io.Writer {
	if m.Stderr != nil {
		return m.Stderr
	}
	return os.Stderr
}

func (m *InteractiveMode) termMode() lineedit.Mode {
	if m.TermMode != nil {
		return m.TermMode
	}
	if f, ok := m.stdin().(*os.File); ok && lineedit.IsTerminal(int(f.Fd())) {
		return lineedit.RawMode(int(f.Fd()))
	}
	return lineedit.NopMode{}
}

// Run performs the whole session: jump-host login (if any), raw mode,
// connect, then event routing until the server closes or ctx is done.
// The terminal is restored and the socket released on every path.
func (m *InteractiveMode) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.Logger.Info("connecting to %s on port %d...", m.Host, m.Port)

	// Password prompts must happen before the console starts reading.
	if p, ok := m.Dialer.(transport.Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			m.Dialer.Close()
			return err
		}
	}

	con := console.New(m.stdin(), m.stdout(), m.stderr(), m.Logger)
	prev := m.Logger.SetOutput(con.ErrWriter())
	defer func() {
		m.Logger.SetOutput(prev)
		con.Close()
	}()

	ed, err := lineedit.New(con, m.termMode(), m.EditorOptions...)
	if err != nil {
		m.Logger.Warn("%v; continuing without raw mode", err)
		ed, _ = lineedit.New(con, lineedit.NopMode{}, m.EditorOptions...)
	}

	st := stream.New(m.StreamOptions, m.Dialer, m.Logger, m.Metrics)
	defer func() {
		cancel()
		if err := errors.Join(ed.Close(), st.Close()); err != nil {
			m.Logger.Warn("teardown: %v", err)
		}
		m.Logger.Verbose("session metrics:\n%s", m.Metrics.JSON())
	}()

	local := con.StartReading(ctx)

	if err := st.Connect(ctx); err != nil {
		return err
	}
	m.Logger.Verbose("connected to %s", util.FormatAddr(m.Host, m.Port))

	router := session.New(ed, st, m.Sink, m.Logger, m.Metrics)
	return router.Run(ctx, local, st.Events())
}
