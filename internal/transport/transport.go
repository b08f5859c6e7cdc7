// Package transport decides how the IMAP connection is reached: a
// direct TCP dial or a channel through an SSH jump host.  What travels
// over the connection (plain or TLS) is the stream's concern.
package transport

import (
	"context"
	"net"
)

// Dialer opens the outbound connection to the server.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// Preparer is implemented by dialers that need interactive setup
// (password prompts) before the terminal enters raw mode.
type Preparer interface {
	Prepare(ctx context.Context) error
}
