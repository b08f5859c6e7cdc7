// Package metrics provides lock-free counters for one interactive
// session: traffic in each direction, submitted lines, failed sends and
// forced disconnects.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a session.
type Collector struct {
	bytesIn      atomic.Int64
	bytesOut     atomic.Int64
	keystrokes   atomic.Int64
	linesSent    atomic.Int64
	sendFailures atomic.Int64
	overflows    atomic.Int64
	errorsTotal  atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	connectedAt  time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection ───────────────────────────────────────────────────────

// Connected records the moment the socket came up.
func (c *Collector) Connected() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connectedAt = time.Now()
	c.mu.Unlock()
}

// Overflow records a disconnect forced by the chunk ceiling.
func (c *Collector) Overflow() {
	if c == nil {
		return
	}
	c.overflows.Add(1)
}

// Overflows returns the number of overflow disconnects.
func (c *Collector) Overflows() int64 {
	if c == nil {
		return 0
	}
	return c.overflows.Load()
}

// ── I/O ──────────────────────────────────────────────────────────────

// BytesReceived records n bytes read from the server.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the server.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// Keystrokes records n bytes of local input.
func (c *Collector) Keystrokes(n int64) {
	if c == nil {
		return
	}
	c.keystrokes.Add(n)
}

// ── Command lines ────────────────────────────────────────────────────

// LineSent records a submitted line that was written to the server.
func (c *Collector) LineSent() {
	if c == nil {
		return
	}
	c.linesSent.Add(1)
}

// SendFailed records a submitted line the stream refused.
func (c *Collector) SendFailed() {
	if c == nil {
		return
	}
	c.sendFailures.Add(1)
}

// LinesSent returns the number of lines written.
func (c *Collector) LinesSent() int64 {
	if c == nil {
		return 0
	}
	return c.linesSent.Load()
}

// SendFailures returns the number of refused writes.
func (c *Collector) SendFailures() int64 {
	if c == nil {
		return 0
	}
	return c.sendFailures.Load()
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	ConnectedFor     string `json:"connected_for,omitempty"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	Keystrokes       int64  `json:"keystrokes"`
	LinesSent        int64  `json:"lines_sent"`
	SendFailures     int64  `json:"send_failures"`
	Overflows        int64  `json:"overflows"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:       time.Since(c.startTime).Truncate(time.Second).String(),
		BytesIn:      c.bytesIn.Load(),
		BytesOut:     c.bytesOut.Load(),
		Keystrokes:   c.keystrokes.Load(),
		LinesSent:    c.linesSent.Load(),
		SendFailures: c.sendFailures.Load(),
		Overflows:    c.overflows.Load(),
		ErrorsTotal:  c.errorsTotal.Load(),
	}
	if !c.connectedAt.IsZero() {
		s.ConnectedFor = time.Since(c.connectedAt).Truncate(time.Second).String()
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
