// Package console is the asynchronous byte channel between the process
// and its terminal.  One goroutine reads input and raises events; one
// goroutine per output destination drains an unbounded queue so that
// writers never block on a slow terminal.
package console

import (
	"context"
	"errors"
	"io"
	"sync"

	"imapcli/config"
	"imapcli/internal/event"
	"imapcli/util"
)

// ErrClosed is returned by the error-destination writer after Close.
var ErrClosed = errors.New("console closed")

// Channel multiplexes one input stream and two output streams.
type Channel struct {
	in     io.Reader
	out    *queue
	errOut *queue
	logger *util.Logger

	mu  sync.Mutex
	acc []byte // every byte read so far

	startOnce sync.Once
	closeOnce sync.Once
}

// New wires a Channel to the given streams and starts both writer
// goroutines.  Reading does not begin until StartReading.
func New(in io.Reader, out, errOut io.Writer, logger *util.Logger) *Channel {
	c := &Channel{in: in, logger: logger}
	c.out = newQueue(out, func(err error) {
		logger.Error("console: writing output: %v", err)
	})
	// Failures on the error destination are dropped: the logger itself
	// writes there.
	c.errOut = newQueue(errOut, nil)
	return c
}

// ── Input ────────────────────────────────────────────────────────────

// StartReading launches the read loop and returns its event channel.
// Every read that returns bytes produces one LocalInput event carrying
// just those bytes.  The channel is closed when input reaches EOF, a
// read fails, or ctx is cancelled.  Only the first call starts a loop;
// later calls return nil.
func (c *Channel) StartReading(ctx context.Context) <-chan event.Event {
	var ch chan event.Event
	c.startOnce.Do(func() {
		ch = make(chan event.Event, config.EventBuffer)
		go c.readLoop(ctx, ch)
	})
	if ch == nil {
		return nil
	}
	return ch
}

func (c *Channel) readLoop(ctx context.Context, ch chan<- event.Event) {
	defer close(ch)

	buf := make([]byte, util.ChunkSize)
	for {
		n, err := c.in.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			c.mu.Lock()
			c.acc = append(c.acc, chunk...)
			c.mu.Unlock()

			select {
			case ch <- event.Local(chunk):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Debug("console: input closed")
			} else {
				c.logger.Error("console: reading input: %v", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Input returns a copy of everything read so far.
func (c *Channel) Input() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.acc...)
}

// ── Output ───────────────────────────────────────────────────────────

// Write enqueues b for the normal output, or for the error output when
// toError is set.  Bytes sent to one destination appear in call order.
// It reports false only once the channel has been closed.
func (c *Channel) Write(b []byte, toError bool) bool {
	if toError {
		return c.errOut.push(b)
	}
	return c.out.push(b)
}

// ErrWriter adapts the error destination to io.Writer so diagnostics
// share its queue instead of racing the terminal writer.
func (c *Channel) ErrWriter() io.Writer { return errWriter{c} }

type errWriter struct{ c *Channel }

func (w errWriter) Write(p []byte) (int, error) {
	if !w.c.errOut.push(p) {
		return 0, ErrClosed
	}
	return len(p), nil
}

// Close stops accepting writes and blocks until both queues have been
// flushed.  Safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.out.close()
		c.errOut.close()
	})
}

// ── queue ────────────────────────────────────────────────────────────

// queue is an unbounded FIFO drained by a single goroutine.
type queue struct {
	dst   io.Writer
	onErr func(error)

	mu     sync.Mutex
	cond   *sync.Cond
	items  [][]byte
	closed bool
	done   chan struct{}
}

func newQueue(dst io.Writer, onErr func(error)) *queue {
	q := &queue{dst: dst, onErr: onErr, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.drain()
	return q
}

func (q *queue) push(b []byte) bool {
	item := append([]byte(nil), b...)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return true
}

func (q *queue) drain() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		batch := q.items
		q.items = nil
		q.mu.Unlock()

		for _, b := range batch {
			if _, err := q.dst.Write(b); err != nil && q.onErr != nil {
				q.onErr(err)
			}
		}
	}
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}
