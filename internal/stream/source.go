package stream

import (
	"bufio"
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"imapcli/config"
)

// source is what the read loop consumes: a reader that can also say,
// without waiting, whether more bytes have already arrived.
type source interface {
	Read(p []byte) (int, error)
	Available() bool
	release()
}

// newSource picks how availability is answered.  A socket descriptor
// (plain TCP, or the TCP conn under TLS) is asked for its queued byte
// count.  Anything else, such as a channel through an SSH jump host, is
// read ahead by a goroutine tracked by wg.
func newSource(conn net.Conn, size int, wg *sync.WaitGroup) source {
	if haveQueued {
		if raw, ok := rawConn(conn); ok {
			return &socketSource{br: bufio.NewReaderSize(conn, size), raw: raw}
		}
	}
	return newPumpSource(conn, size, config.ReadAhead, wg)
}

func rawConn(conn net.Conn) (syscall.RawConn, bool) {
	if tc, ok := conn.(*tls.Conn); ok {
		conn = tc.NetConn()
	}
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, false
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, false
	}
	return raw, true
}

// ── socketSource ─────────────────────────────────────────────────────

// socketSource answers Available from its own buffer and the kernel
// receive queue.  Under TLS, plaintext already decrypted inside
// tls.Conn is invisible here; that only splits a burst across two
// wake-ups.
type socketSource struct {
	br  *bufio.Reader
	raw syscall.RawConn
}

func (s *socketSource) Read(p []byte) (int, error) { return s.br.Read(p) }

// Available never blocks.  A failed query counts as available so that
// the next Read surfaces the error.
func (s *socketSource) Available() bool {
	if s.br.Buffered() > 0 {
		return true
	}
	n, err := queued(s.raw)
	return err != nil || n > 0
}

func (s *socketSource) release() {}

// ── pumpSource ───────────────────────────────────────────────────────

// pumpSource reads ahead on its own goroutine, at most depth chunks,
// so Available can be answered for connections that expose neither a
// descriptor nor read deadlines.
type pumpSource struct {
	chunks chan []byte
	done   chan struct{}
	once   sync.Once
	ended  atomic.Bool
	err    error // written before chunks is closed
	cur    []byte
}

func newPumpSource(conn net.Conn, size, depth int, wg *sync.WaitGroup) *pumpSource {
	p := &pumpSource{
		chunks: make(chan []byte, depth),
		done:   make(chan struct{}),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.pump(conn, size)
	}()
	return p
}

// pump stops when the connection fails or closes, or once release is
// called.
func (p *pumpSource) pump(conn net.Conn, size int) {
	defer close(p.chunks)
	for {
		buf := make([]byte, size)
		n, err := conn.Read(buf)
		if n > 0 {
			select {
			case p.chunks <- buf[:n]:
			case <-p.done:
				return
			}
		}
		if err != nil || n == 0 {
			p.err = err
			p.ended.Store(true)
			return
		}
	}
}

func (p *pumpSource) Read(b []byte) (int, error) {
	if len(p.cur) == 0 {
		c, ok := <-p.chunks
		if !ok {
			return 0, p.err
		}
		p.cur = c
	}
	n := copy(b, p.cur)
	p.cur = p.cur[n:]
	return n, nil
}

// Available reports read-ahead bytes, or a pending end of stream.
func (p *pumpSource) Available() bool {
	return len(p.cur) > 0 || len(p.chunks) > 0 || p.ended.Load()
}

func (p *pumpSource) release() {
	p.once.Do(func() { close(p.done) })
}
