// Package tunnel reaches IMAP servers that sit behind an SSH bastion.
// TLS, when requested, still runs end-to-end over the forwarded
// connection; the bastion only carries opaque bytes.
package tunnel

import (
	"context"
	"net"
)

// Tunnel abstracts an encrypted channel through which TCP connections
// can be forwarded.
type Tunnel interface {
	// Connect establishes the session with the jump host.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the tunnel.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the tunnel and frees resources.
	Close() error

	// IsAlive reports whether the jump-host session is still up.
	IsAlive() bool
}
