// Package cmd wires up the CLI flags and hands the session to core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"imapcli/config"
	"imapcli/internal/core"
	"imapcli/internal/transcript"
	"imapcli/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X imapcli/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Overridden in tests.
var (
	stdout io.Writer = os.Stdout //nolint:gochecknoglobals
	stderr io.Writer = os.Stderr //nolint:gochecknoglobals
)

// UsageError reports a command line that could not be understood.  The
// usage text has already been printed.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Execute parses args and runs an interactive session.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{}
	config.LoadFromEnv(cfg)
	envVerbose := cfg.Verbose

	fs := flag.NewFlagSet("imapcli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// ── connection ───────────────────────────────────────────────
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Server port (default 143, or 993 with -s)")
	fs.BoolVarP(&cfg.TLS, "tls", "s", cfg.TLS, "Use TLS")
	fs.BoolVarP(&cfg.Insecure, "insecure", "u", cfg.Insecure, "Accept self-signed or otherwise untrusted certificates (with -s)")

	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Connect timeout in seconds (default 30)")

	// ── SSH jump host ────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the server through an SSH jump host [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Color, "color", "c", cfg.Color, "Colorize output")
	fs.StringVarP(&cfg.LogFile, "log", "l", cfg.LogFile, "Write a transcript of the IMAP conversation to `file`")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		printUsage(fs)
		return &UsageError{Err: err}
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "imapcli %s\n", version)
		return nil
	}

	cfg.Verbose += envVerbose
	cfg.Timeout = time.Duration(timeoutSec) * time.Second

	// ── positional arguments ─────────────────────────────────────
	switch rest := fs.Args(); {
	case len(rest) == 1:
		cfg.Host = rest[0]
	case len(rest) > 1:
		printUsage(fs)
		return &UsageError{Err: fmt.Errorf("unexpected arguments after server: %v", rest[1:])}
	case cfg.Host == "":
		printUsage(fs)
		return &UsageError{Err: fmt.Errorf("server is required")}
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(logLevel(cfg.Verbose))

	if dryRun {
		if _, err := core.Build(cfg, logger, nil); err != nil {
			return err
		}
		printConfig(cfg)
		return nil
	}

	var sink transcript.Sink
	if cfg.LogFile != "" {
		f, err := transcript.Open(cfg.LogFile, logger)
		if err != nil {
			return err
		}
		defer f.Close()
		sink = f
	}

	return core.Start(ctx, cfg, logger, sink)
}

// logLevel maps the -v count onto the logger: normal by default, so the
// connection banner is always shown.
func logLevel(verbose int) int {
	lvl := int(util.LogNormal) + verbose
	if lvl > int(util.LogDebug) {
		lvl = int(util.LogDebug)
	}
	return lvl
}

// ── helpers ──────────────────────────────────────────────────────────

func printConfig(cfg *config.Config) {
	fmt.Fprintf(stdout, "server:     %s\n", cfg.Addr())
	fmt.Fprintf(stdout, "tls:        %v (insecure=%v)\n", cfg.TLS, cfg.Insecure)
	if cfg.TunnelEnabled {
		fmt.Fprintf(stdout, "jump host:  %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
	if cfg.LogFile != "" {
		fmt.Fprintf(stdout, "transcript: %s\n", cfg.LogFile)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `imapcli v%s

An interactive IMAP command line with history.

Usage:
  imapcli <server> [-p <port>] [-s] [-u] [-c] [-l <file>]

Options:
`, version)
	fmt.Fprint(stderr, fs.FlagUsages())
	fmt.Fprintf(stderr, `
Examples:
  imapcli imap.example.com                    Plain IMAP on port 143
  imapcli -s imap.example.com                 IMAP over TLS on port 993
  imapcli -s -u -p 10993 localhost            Self-signed test server
  imapcli -s -l session.log imap.example.com  Keep a transcript
  imapcli -s -T admin@bastion mail.internal   Through an SSH jump host
`)
}
