// Package config defines the runtime configuration for imapcli and
// provides helpers for parsing jump-host specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"imapcli/internal/errors"
)

// Config holds every tuneable for a single imapcli session.  It is
// treated as immutable once the socket stream has been built.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host     string
	Port     int  // 0 → DefaultPort / DefaultTLSPort depending on TLS
	TLS      bool // -s
	Insecure bool // -u: accept any server certificate
	Timeout  time.Duration

	// ── SSH jump host ────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Color   bool   // -c
	LogFile string // -l: transcript destination
	Verbose int
}

// EffectivePort returns the explicit port, or the protocol default
// when none was given.
func (c *Config) EffectivePort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.TLS {
		return DefaultTLSPort
	}
	return DefaultPort
}

// Addr returns "host:port" for the destination server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.EffectivePort())
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:@]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q: expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec (if set) into the Tunnel* fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &errors.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@bastion.example.com[:port]",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &errors.ConfigError{
			Field:   "server",
			Message: "hostname is required",
			Hint:    "usage: imapcli <server> [-p <port>] [-s] [-u]",
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &errors.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    "omit -p to use 143 (or 993 with -s)",
		}
	}
	if c.Timeout < 0 {
		return &errors.ConfigError{
			Field:   "timeout",
			Value:   c.Timeout,
			Message: "must not be negative",
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &errors.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: "tunnel host is required",
			Hint:    "use -T user@bastion.example.com[:port]",
		}
	}
	if !c.TunnelEnabled && (c.SSHKeyPath != "" || c.SSHPassword || c.UseSSHAgent) {
		return &errors.ConfigError{
			Field:   "tunnel",
			Message: "SSH authentication options require a jump host",
			Hint:    "add -T user@bastion.example.com",
		}
	}
	return nil
}

// Warnings returns non-fatal configuration remarks.
func (c *Config) Warnings() []string {
	var out []string
	if c.Insecure && !c.TLS {
		out = append(out, "-u has no effect without -s")
	}
	return out
}
