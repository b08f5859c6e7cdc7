package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	ierr "imapcli/internal/errors"
)

// capture redirects the package writers for one test.
func capture(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr := stdout, stderr
	stdout, stderr = out, errOut
	t.Cleanup(func() { stdout, stderr = prevOut, prevErr })
	return out, errOut
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	out, _ := capture(t)
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "imapcli ") {
		t.Errorf("version output = %q", out.String())
	}
}

// TestExecute_Help verifies --help prints usage without error.
func TestExecute_Help(t *testing.T) {
	for _, arg := range []string{"--help", "-h"} {
		t.Run(arg, func(t *testing.T) {
			_, errOut := capture(t)
			if err := Execute(context.Background(), []string{arg}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(errOut.String(), "imapcli <server> [-p <port>] [-s] [-u] [-c] [-l <file>]") {
				t.Errorf("usage text missing synopsis:\n%s", errOut.String())
			}
		})
	}
}

// TestExecute_MissingServer verifies that no connection is attempted
// without a server argument.
func TestExecute_MissingServer(t *testing.T) {
	t.Setenv("IMAPCLI_HOST", "")
	_, errOut := capture(t)

	err := Execute(context.Background(), nil)
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("expected UsageError, got %v", err)
	}
	if !strings.Contains(errOut.String(), "Usage:") {
		t.Error("usage should be printed")
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce a usage error.
func TestExecute_InvalidFlags(t *testing.T) {
	_, errOut := capture(t)

	err := Execute(context.Background(), []string{"--nonexistent-flag", "imap.example.com"})
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("expected UsageError, got %v", err)
	}
	if !strings.Contains(errOut.String(), "Usage:") {
		t.Error("usage should be printed")
	}
}

func TestExecute_TooManyArguments(t *testing.T) {
	capture(t)
	err := Execute(context.Background(), []string{"imap.example.com", "993"})
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("expected UsageError, got %v", err)
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"plain default port", []string{"--dry-run", "imap.example.com"}, "imap.example.com:143"},
		{"tls default port", []string{"--dry-run", "-s", "imap.example.com"}, "imap.example.com:993"},
		{"explicit port", []string{"--dry-run", "-s", "-p", "10993", "localhost"}, "localhost:10993"},
		{"jump host", []string{"--dry-run", "-T", "ops@bastion:2222", "mail.internal"}, "ops@bastion:2222"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := capture(t)
			if err := Execute(context.Background(), tt.args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q should contain %q", out.String(), tt.want)
			}
		})
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"port out of range", []string{"--dry-run", "-p", "70000", "imap.example.com"}},
		{"bad tunnel spec", []string{"--dry-run", "-T", "a@b:xyz", "imap.example.com"}},
		{"ssh key without tunnel", []string{"--dry-run", "--ssh-key", "/k", "imap.example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture(t)
			err := Execute(context.Background(), tt.args)
			var ce *ierr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestExecute_EnvSuppliesDefaults(t *testing.T) {
	t.Setenv("IMAPCLI_TLS", "1")
	t.Setenv("IMAPCLI_PORT", "1993")
	out, _ := capture(t)

	if err := Execute(context.Background(), []string{"--dry-run", "imap.example.com"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "imap.example.com:1993") {
		t.Errorf("env port not applied: %q", out.String())
	}

	out.Reset()
	if err := Execute(context.Background(), []string{"--dry-run", "-p", "2993", "imap.example.com"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "imap.example.com:2993") {
		t.Errorf("flag should win over env: %q", out.String())
	}
}

func TestExecute_TranscriptOpenFailure(t *testing.T) {
	capture(t)
	bad := filepath.Join(t.TempDir(), "no", "such", "dir", "log.txt")
	err := Execute(context.Background(), []string{"-l", bad, "127.0.0.1"})
	if err == nil || !strings.Contains(err.Error(), "transcript") {
		t.Fatalf("expected transcript error, got %v", err)
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct{ v, want int }{{0, 1}, {1, 2}, {2, 3}, {5, 3}}
	for _, tt := range tests {
		if got := logLevel(tt.v); got != tt.want {
			t.Errorf("logLevel(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}
}
