package core

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imapcli/config"
	ierr "imapcli/internal/errors"
	"imapcli/internal/testutil"
	"imapcli/internal/transport"
	"imapcli/tunnel"
	"imapcli/util"
)

// ── fixtures ─────────────────────────────────────────────────────────

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type countingMode struct {
	mu       sync.Mutex
	restores int
}

func (m *countingMode) MakeRaw() error { return nil }
func (m *countingMode) Restore() error {
	m.mu.Lock()
	m.restores++
	m.mu.Unlock()
	return nil
}

func (m *countingMode) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restores
}

type memSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *memSink) Write(text string) {
	s.mu.Lock()
	s.lines = append(s.lines, text)
	s.mu.Unlock()
}

// imapServer greets, answers each tagged command with OK and closes
// after LOGOUT.
func imapServer(c net.Conn) {
	c.Write([]byte("* OK IMAP4rev1 Service Ready\r\n")) //nolint:errcheck
	r := bufio.NewReader(c)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			c.Write([]byte("* BAD missing command\r\n")) //nolint:errcheck
			continue
		}
		tag, cmd := fields[0], strings.ToUpper(fields[1])
		if cmd == "LOGOUT" {
			c.Write([]byte("* BYE logging out\r\n" + tag + " OK LOGOUT completed\r\n")) //nolint:errcheck
			return
		}
		c.Write([]byte(tag + " OK " + cmd + " completed\r\n")) //nolint:errcheck
	}
}

type harness struct {
	mode   *InteractiveMode
	in     *io.PipeWriter
	out    *syncBuffer
	errOut *syncBuffer
	term   *countingMode
	sink   *memSink
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	logger := util.NewLogger(3)
	sink := &memSink{}
	m, err := Build(cfg, logger, sink)
	require.NoError(t, err)

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	h := &harness{mode: m, in: pw, out: &syncBuffer{}, errOut: &syncBuffer{}, term: &countingMode{}, sink: sink}
	logger.SetOutput(h.errOut)
	m.Stdin, m.Stdout, m.Stderr, m.TermMode = pr, h.out, h.errOut, h.term
	return h
}

func (h *harness) run(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- h.mode.Run(ctx) }()
	return done
}

func (h *harness) typeLine(t *testing.T, s string) {
	t.Helper()
	_, err := h.in.Write([]byte(s + "\r"))
	require.NoError(t, err)
}

func (h *harness) waitOutput(t *testing.T, sub string) {
	t.Helper()
	require.Eventually(t, func() bool { return strings.Contains(h.out.String(), sub) },
		5*time.Second, 10*time.Millisecond, "output never contained %q:\n%s", sub, h.out.String())
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
		return nil
	}
}

func hostPort(t *testing.T, ln net.Listener) (string, int) {
	t.Helper()
	a := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", a.Port
}

// ── Build ────────────────────────────────────────────────────────────

func TestBuild_DefaultPorts(t *testing.T) {
	logger := util.NewLogger(0)

	m, err := Build(&config.Config{Host: "imap.example.com"}, logger, nil)
	require.NoError(t, err)
	assert.Equal(t, 143, m.Port)
	assert.False(t, m.StreamOptions.TLS)
	assert.IsType(t, &transport.TCPDialer{}, m.Dialer)

	m, err = Build(&config.Config{Host: "imap.example.com", TLS: true, Insecure: true}, logger, nil)
	require.NoError(t, err)
	assert.Equal(t, 993, m.Port)
	assert.True(t, m.StreamOptions.TLS)
	assert.True(t, m.StreamOptions.Insecure)
}

func TestBuild_JumpHost(t *testing.T) {
	m, err := Build(&config.Config{Host: "mail.internal", TunnelSpec: "ops@bastion"}, util.NewLogger(0), nil)
	require.NoError(t, err)
	assert.IsType(t, &transport.SSHDialer{}, m.Dialer)
}

func TestBuild_InvalidConfig(t *testing.T) {
	_, err := Build(&config.Config{}, util.NewLogger(0), nil)
	var ce *ierr.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "server", ce.Field)
}

func TestBuild_Color(t *testing.T) {
	m, err := Build(&config.Config{Host: "h", Color: true}, util.NewLogger(0), nil)
	require.NoError(t, err)
	assert.Len(t, m.EditorOptions, 1)
}

// ── Run ──────────────────────────────────────────────────────────────

func TestRun_RoundTripAndLogout(t *testing.T) {
	ln := testutil.StartTCPServer(t, imapServer)
	host, port := hostPort(t, ln)
	h := newHarness(t, &config.Config{Host: host, Port: port})

	done := h.run(context.Background())

	h.waitOutput(t, " ← * OK IMAP4rev1 Service Ready\r\n")
	h.typeLine(t, "A1 NOOP")
	h.waitOutput(t, " ← A1 OK NOOP completed\r\n")
	h.typeLine(t, "A2 LOGOUT")

	require.NoError(t, wait(t, done))
	assert.Contains(t, h.out.String(), "A2 OK LOGOUT completed")
	assert.Equal(t, 1, h.term.count(), "terminal restored exactly once")
	assert.Contains(t, h.errOut.String(), "connecting to 127.0.0.1 on port")

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	assert.Contains(t, h.sink.lines, "C: A1 NOOP\r\n")
	assert.Contains(t, h.sink.lines, "S: A1 OK NOOP completed\r\n")

	snap := h.mode.Metrics.Snapshot()
	assert.Equal(t, int64(2), snap.LinesSent)
	assert.Equal(t, int64(len("A1 NOOP\r\nA2 LOGOUT\r\n")), snap.BytesOut)
}

func TestRun_ServerClosesFirst(t *testing.T) {
	ln := testutil.StartTCPServer(t, func(c net.Conn) {
		c.Write([]byte("* BYE too busy\r\n")) //nolint:errcheck
	})
	host, port := hostPort(t, ln)
	h := newHarness(t, &config.Config{Host: host, Port: port})

	require.NoError(t, wait(t, h.run(context.Background())))
	assert.Equal(t, 1, h.term.count())
}

func TestRun_CancelRestoresTerminal(t *testing.T) {
	ln := testutil.StartTCPServer(t, imapServer)
	host, port := hostPort(t, ln)
	h := newHarness(t, &config.Config{Host: host, Port: port})

	ctx, cancel := context.WithCancel(context.Background())
	done := h.run(ctx)
	h.waitOutput(t, "Service Ready")
	cancel()

	require.NoError(t, wait(t, done))
	assert.Equal(t, 1, h.term.count())
}

func TestRun_ConnectFailure(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)
	h := newHarness(t, &config.Config{Host: "127.0.0.1", Port: port})

	err = wait(t, h.run(context.Background()))
	var ce *ierr.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, h.term.count(), "terminal restored after a failed connect")
}

func TestRun_TLS(t *testing.T) {
	cert := testutil.NewSelfSigned(t)
	srvCfg := cert.ServerConfig()
	ln := testutil.StartTCPServer(t, func(c net.Conn) {
		tc := tls.Server(c, srvCfg)
		if tc.Handshake() != nil {
			return
		}
		imapServer(tc)
	})
	host, port := hostPort(t, ln)

	t.Run("untrusted", func(t *testing.T) {
		h := newHarness(t, &config.Config{Host: host, Port: port, TLS: true})
		err := wait(t, h.run(context.Background()))
		var trust *ierr.TLSTrustError
		require.ErrorAs(t, err, &trust)
	})

	t.Run("insecure", func(t *testing.T) {
		h := newHarness(t, &config.Config{Host: host, Port: port, TLS: true, Insecure: true})
		done := h.run(context.Background())
		h.waitOutput(t, "Service Ready")
		h.typeLine(t, "a logout")
		require.NoError(t, wait(t, done))
		assert.Contains(t, h.out.String(), "a OK LOGOUT completed")
	})
}

func TestRun_ThroughJumpHost(t *testing.T) {
	srv := testutil.StartSSHServer(t, "ops", "pw")
	ln := testutil.StartTCPServer(t, imapServer)
	host, port := hostPort(t, ln)

	h := newHarness(t, &config.Config{Host: host, Port: port})
	h.mode.Dialer = transport.NewSSHDialer(&tunnel.SSHConfig{
		User:       "ops",
		Host:       "127.0.0.1",
		Port:       srv.Port(),
		PromptPass: true,
		Prompt:     func(string) ([]byte, error) { return []byte("pw"), nil },
	}, h.mode.Logger)

	done := h.run(context.Background())
	h.waitOutput(t, "Service Ready")
	h.typeLine(t, "A1 CAPABILITY")
	h.waitOutput(t, "A1 OK CAPABILITY completed")
	h.typeLine(t, "A2 LOGOUT")
	require.NoError(t, wait(t, done))
}

func TestRun_JumpHostLoginFailure(t *testing.T) {
	srv := testutil.StartSSHServer(t, "ops", "pw")

	h := newHarness(t, &config.Config{Host: "127.0.0.1", Port: 143})
	h.mode.Dialer = transport.NewSSHDialer(&tunnel.SSHConfig{
		User:       "ops",
		Host:       "127.0.0.1",
		Port:       srv.Port(),
		PromptPass: true,
		Prompt:     func(string) ([]byte, error) { return []byte("nope"), nil },
	}, h.mode.Logger)

	err := wait(t, h.run(context.Background()))
	var sshErr *ierr.SSHError
	require.ErrorAs(t, err, &sshErr)
	assert.Zero(t, h.term.count(), "raw mode is never entered when login fails")
}

func TestStart_InvalidConfig(t *testing.T) {
	err := Start(context.Background(), &config.Config{Port: 143}, util.NewLogger(0), nil)
	var ce *ierr.ConfigError
	assert.ErrorAs(t, err, &ce)
}
