// Package errors provides domain-specific error types for imapcli.
//
// These types carry structured context (operation, address, host) that
// lets callers classify a failure without string matching, and give the
// user better diagnostics than plain wrapping.
package errors

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected = errors.New("not connected")
	ErrOverflow     = errors.New("remote data exceeded the per-read chunk ceiling")
	ErrTunnelClosed = errors.New("tunnel is closed")
	ErrAuthFailed   = errors.New("authentication failed")
)

// ── Structured error types ───────────────────────────────────────────

// ConnectionError represents a failure to resolve or reach the server.
type ConnectionError struct {
	Op   string // "resolve", "dial"
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TLSTrustError is returned when the server certificate fails
// validation and permissive mode is off.
type TLSTrustError struct {
	Host string
	Err  error
}

func (e *TLSTrustError) Error() string {
	return fmt.Sprintf("tls: untrusted certificate for %s: %v (use -u to accept self-signed certificates)", e.Host, e.Err)
}

func (e *TLSTrustError) Unwrap() error { return e.Err }

// StreamError is a transport failure on an established connection.
// Read failures end the session like a clean EOF; write failures are
// only reported to the immediate caller.
type StreamError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// TerminalModeError reports a failure to enter or restore raw mode.
type TerminalModeError struct {
	Op  string // "enter" or "restore"
	Err error
}

func (e *TerminalModeError) Error() string {
	return fmt.Sprintf("terminal %s raw mode: %v", e.Op, e.Err)
}

func (e *TerminalModeError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "dial"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := "config: " + e.Field
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a ConnectionError.
func Wrap(op, addr string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Addr: addr, Err: err}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// WrapHandshake classifies a TLS handshake failure: certificate
// validation problems become a TLSTrustError, anything else is a
// ConnectionError.
func WrapHandshake(host, addr string, err error) error {
	if IsTrustFailure(err) {
		return &TLSTrustError{Host: host, Err: err}
	}
	return Wrap("handshake", addr, err)
}

// ── Classification helpers ───────────────────────────────────────────

// IsTrustFailure reports whether err stems from certificate validation.
func IsTrustFailure(err error) bool {
	if err == nil {
		return false
	}
	var (
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

// IsTerminalMode reports whether err is a raw-mode failure.
func IsTerminalMode(err error) bool {
	var te *TerminalModeError
	return errors.As(err, &te)
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use imapcli/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
