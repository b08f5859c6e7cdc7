// Package transcript records the client/server conversation to a file
// for later inspection (-l).
package transcript

import (
	"fmt"
	"os"
	"sync"

	"imapcli/util"
)

// Sink receives transcript text.  Implementations must not block the
// session and never report failure to it.
type Sink interface {
	Write(text string)
}

// Discard is a Sink that drops everything.
type Discard struct{}

func (Discard) Write(string) {}

// File appends transcript text to a file created (or truncated) by
// Open.  Write errors are logged once and further output is dropped.
type File struct {
	path   string
	logger *util.Logger

	mu     sync.Mutex
	f      *os.File
	failed bool
}

// Open creates path, truncating any existing file.
func Open(path string, logger *util.Logger) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	logger.Verbose("transcript: writing to %s", path)
	return &File{path: path, logger: logger, f: f}, nil
}

// Write appends text.
func (t *File) Write(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.f == nil || t.failed {
		return
	}
	if _, err := t.f.WriteString(text); err != nil {
		t.failed = true
		t.logger.Warn("transcript: %s: %v (further output dropped)", t.path, err)
	}
}

// Close flushes and closes the file.  Safe to call more than once.
func (t *File) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.f == nil {
		return nil
	}
	err := t.f.Close()
	t.f = nil
	return err
}
