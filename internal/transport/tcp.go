package transport

import (
	"context"
	"net"
	"time"

	"imapcli/internal/errors"
	"imapcli/util"
)

// TCPDialer resolves the host and dials each address in turn until one
// answers.
type TCPDialer struct {
	Timeout time.Duration
}

// Dial connects to address over TCP.  Failures are reported as
// *errors.ConnectionError with Op "resolve" or "dial".
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, errors.Wrap("resolve", address, err)
	}

	addrs, err := util.LookupHost(ctx, host)
	if err != nil {
		return nil, errors.Wrap("resolve", address, err)
	}

	dialer := net.Dialer{Timeout: d.Timeout}
	var last error
	for _, a := range addrs {
		conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(a, port))
		if err == nil {
			return conn, nil
		}
		last = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Wrap("dial", address, last)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
