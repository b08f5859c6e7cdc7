package util

import (
	"context"
	"testing"
)

func TestFormatAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"1.2.3.4", 143, "1.2.3.4:143"},
		{"::1", 993, "[::1]:993"},
		{"mail.example.com", 993, "mail.example.com:993"},
	}
	for _, tt := range tests {
		if got := FormatAddr(tt.host, tt.port); got != tt.want {
			t.Errorf("FormatAddr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestFindFreePort(t *testing.T) {
	port, err := FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if port < 1 || port > 65535 {
		t.Errorf("port %d out of range", port)
	}
}

func TestLookupHost_Numeric(t *testing.T) {
	addrs, err := LookupHost(context.Background(), "192.168.1.1")
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 1 || addrs[0] != "192.168.1.1" {
		t.Errorf("got %v", addrs)
	}
}

func TestLookupHost_Invalid(t *testing.T) {
	_, err := LookupHost(context.Background(), "no-such-host.invalid")
	if err == nil {
		t.Error("expected error for .invalid TLD")
	}
}
