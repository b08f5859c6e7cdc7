// Package stream is the socket side of a session: it dials the server
// (optionally through TLS), turns incoming bytes into RemoteData events
// and writes submitted lines.
//
// The read loop, the router and the final teardown may all disconnect,
// so both halves live behind one mutex and are always released
// together.
package stream

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"imapcli/config"
	ierr "imapcli/internal/errors"
	"imapcli/internal/event"
	"imapcli/internal/metrics"
	"imapcli/internal/transport"
	"imapcli/util"
)

// Options describe the server endpoint.  They are fixed once the
// Stream is built.
type Options struct {
	Host     string
	Port     int
	TLS      bool
	Insecure bool // accept any certificate; only meaningful with TLS

	RootCAs   *x509.CertPool // nil → system roots
	ChunkSize int
	MaxChunks int
}

// OptionsFrom derives stream options from the session config.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Host:     cfg.Host,
		Port:     cfg.EffectivePort(),
		TLS:      cfg.TLS,
		Insecure: cfg.Insecure,
	}
}

func (o *Options) defaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = config.ChunkSize
	}
	if o.MaxChunks <= 0 {
		o.MaxChunks = config.MaxChunks
	}
}

// Stream owns the connection to the server.
type Stream struct {
	opts    Options
	addr    string
	dialer  transport.Dialer
	logger  *util.Logger
	metrics *metrics.Collector
	events  chan event.Event

	mu     sync.Mutex
	conn   net.Conn
	reader *half
	writer *half

	wg sync.WaitGroup
}

// New builds an unconnected Stream.  metrics may be nil.
func New(opts Options, dialer transport.Dialer, logger *util.Logger, m *metrics.Collector) *Stream {
	opts.defaults()
	return &Stream{
		opts:    opts,
		addr:    util.FormatAddr(opts.Host, opts.Port),
		dialer:  dialer,
		logger:  logger,
		metrics: m,
		events:  make(chan event.Event, config.EventBuffer),
	}
}

// Events delivers RemoteData and RemoteClosed events.  It is never
// closed; a RemoteClosed event marks the end of each read loop.
func (s *Stream) Events() <-chan event.Event { return s.events }

// ── Connect ──────────────────────────────────────────────────────────

// Connect dials the server, performs the TLS handshake when requested
// and starts the read loop.  ctx bounds both the dial and the lifetime
// of the read loop's event delivery.
func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil || s.reader != nil {
		s.mu.Unlock()
		return fmt.Errorf("stream: already connected to %s", s.addr)
	}
	r, w := &half{}, &half{}
	r.move(Opening)
	w.move(Opening)
	s.reader, s.writer = r, w
	s.mu.Unlock()

	conn, err := s.open(ctx)
	if err != nil {
		s.mu.Lock()
		r.move(Error)
		w.move(Error)
		r.move(Closed)
		w.move(Closed)
		s.reader, s.writer = nil, nil
		s.mu.Unlock()
		s.metrics.RecordError(err.Error())
		return err
	}

	s.mu.Lock()
	s.conn = conn
	r.move(Open)
	w.move(Open)
	s.mu.Unlock()

	s.metrics.Connected()
	s.logger.Debug("stream: connected to %s (tls=%v)", s.addr, s.opts.TLS)

	s.wg.Add(1)
	go s.readLoop(ctx, newSource(conn, s.opts.ChunkSize, &s.wg), r)
	return nil
}

func (s *Stream) open(ctx context.Context) (net.Conn, error) {
	conn, err := s.dialer.Dial(ctx, "tcp", s.addr)
	if err != nil {
		var ce *ierr.ConnectionError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, ierr.Wrap("dial", s.addr, err)
	}
	if !s.opts.TLS {
		return conn, nil
	}

	tconn := tls.Client(conn, &tls.Config{
		ServerName:         s.opts.Host,
		InsecureSkipVerify: s.opts.Insecure, //nolint:gosec // opt-in via -u
		RootCAs:            s.opts.RootCAs,
		MinVersion:         tls.VersionTLS12,
	})
	if err := tconn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, ierr.WrapHandshake(s.opts.Host, s.addr, err)
	}
	st := tconn.ConnectionState()
	s.logger.Debug("stream: TLS %s established, cipher %s",
		tls.VersionName(st.Version), tls.CipherSuiteName(st.CipherSuite))
	return tconn, nil
}

// ── Read loop ────────────────────────────────────────────────────────

func (s *Stream) readLoop(ctx context.Context, src source, r *half) {
	defer s.wg.Done()
	defer s.emit(ctx, event.Closed())
	defer src.release()

	var buf []byte
	if s.opts.ChunkSize == util.ChunkSize {
		p := util.GetChunk()
		defer util.PutChunk(p)
		buf = *p
	} else {
		buf = make([]byte, s.opts.ChunkSize)
	}
	for s.wake(ctx, src, r, buf) {
	}
	s.logger.Debug("stream: read loop finished")
}

// wake handles one wake-up: a blocking read followed by up to
// MaxChunks-1 further reads while bytes remain available.  Every read
// that returns bytes raises a RemoteData event carrying everything
// gathered so far in this wake-up.  It reports whether the loop should
// continue.
//
// Availability is sampled before each event is raised.  Nothing the
// server sends in answer to that event can have arrived yet, so a reply
// always starts a new wake-up.
func (s *Stream) wake(ctx context.Context, src source, r *half, buf []byte) bool {
	var acc []byte
	for i := 0; i < s.opts.MaxChunks; i++ {
		s.setReader(r, Reading)
		n, err := src.Read(buf)
		s.setReader(r, Open)

		if n > 0 {
			acc = append(acc, buf[:n]...)
			s.metrics.BytesReceived(int64(n))
		}
		if err != nil || n == 0 {
			s.endRead(r, err)
			if n > 0 {
				s.emit(ctx, event.Remote(acc[:len(acc):len(acc)]))
			}
			return false
		}

		more := src.Available()
		s.emit(ctx, event.Remote(acc[:len(acc):len(acc)]))
		if !more {
			return true
		}
	}

	s.logger.Warn("server sent more than %d bytes in one burst, disconnecting",
		s.opts.MaxChunks*s.opts.ChunkSize)
	s.metrics.Overflow()
	s.metrics.RecordError(ierr.ErrOverflow.Error())
	s.Disconnect() //nolint:errcheck
	return false
}

// endRead records why reading stopped and disconnects.
func (s *Stream) endRead(r *half, err error) {
	s.mu.Lock()
	if err == nil || errors.Is(err, io.EOF) {
		r.move(AtEnd)
	} else {
		r.move(Error)
	}
	s.mu.Unlock()

	switch {
	case err == nil:
		s.logger.Debug("stream: empty read, closing")
	case errors.Is(err, io.EOF):
		s.logger.Debug("stream: server closed the connection")
	case errors.Is(err, net.ErrClosed):
		s.logger.Debug("stream: connection closed locally")
	default:
		serr := &ierr.StreamError{Op: "read", Err: err}
		s.logger.Debug("%v", serr)
		s.metrics.RecordError(serr.Error())
	}
	s.Disconnect() //nolint:errcheck
}

func (s *Stream) setReader(r *half, to Status) {
	s.mu.Lock()
	r.move(to)
	s.mu.Unlock()
}

// emit delivers ev unless the session has been cancelled.
func (s *Stream) emit(ctx context.Context, ev event.Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// ── Write ────────────────────────────────────────────────────────────

// WriteData writes b immediately if the write half is open and idle.
// It never queues: a busy or missing write half, or an empty b, yields
// false.  A transport error disconnects the stream and yields false.
func (s *Stream) WriteData(b []byte) bool {
	if len(b) == 0 {
		return false
	}

	s.mu.Lock()
	w, conn := s.writer, s.conn
	if w == nil || conn == nil || !w.move(Writing) {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	_, err := conn.Write(b)

	s.mu.Lock()
	if err != nil {
		w.move(Error)
	} else {
		w.move(Open)
	}
	s.mu.Unlock()

	if err != nil {
		serr := &ierr.StreamError{Op: "write", Err: err}
		s.logger.Debug("%v", serr)
		s.metrics.RecordError(serr.Error())
		s.Disconnect() //nolint:errcheck
		return false
	}
	s.metrics.BytesSent(int64(len(b)))
	return true
}

// ── Lifecycle ────────────────────────────────────────────────────────

// Connected reports whether both halves exist and are usable.
func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader == nil || s.writer == nil {
		return false
	}
	rs, ws := s.reader.status, s.writer.status
	return (rs == Open || rs == Reading) && (ws == Open || ws == Writing)
}

// Disconnect closes the connection and detaches both halves.  Calling
// it again, or before Connect, is a no-op.
func (s *Stream) Disconnect() error {
	s.mu.Lock()
	conn, r, w := s.conn, s.reader, s.writer
	s.conn, s.reader, s.writer = nil, nil, nil
	if r != nil {
		r.move(Closed)
	}
	if w != nil {
		w.move(Closed)
	}
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	s.logger.Debug("stream: disconnecting from %s", s.addr)
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return &ierr.StreamError{Op: "close", Err: err}
	}
	return nil
}

// Wait blocks until the read loop has exited.  The loop only exits
// after a disconnect, or once ctx is done and its last event is
// dropped.
func (s *Stream) Wait() { s.wg.Wait() }

// Close disconnects, releases the dialer and waits for the read loop.
// The Connect context must be done (or the events drained) for Close to
// return.
func (s *Stream) Close() error {
	err := s.Disconnect()
	if derr := s.dialer.Close(); derr != nil {
		err = errors.Join(err, derr)
	}
	s.Wait()
	return err
}
