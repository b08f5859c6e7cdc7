package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultPort is the plaintext IMAP port.
	DefaultPort = 143

	// DefaultTLSPort is the implicit-TLS IMAP port used with -s.
	DefaultTLSPort = 993

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout bounds the TCP dial and SSH handshake.  Once
	// connected there are no read, write or session timeouts.
	DefaultConnTimeout = 30 * time.Second

	// ChunkSize is the size of one socket read.
	ChunkSize = 16 * 1024

	// MaxChunks is the number of reads gathered per wake-up before the
	// overflow policy applies.
	MaxChunks = 1024

	// ReadAhead is how many chunks the stream buffers ahead of the read
	// loop on connections without a socket descriptor (SSH channels).
	ReadAhead = 4

	// EventBuffer is the capacity of the event channels feeding the
	// router.
	EventBuffer = 64
)
