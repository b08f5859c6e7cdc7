package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Host(t *testing.T) {
	t.Setenv("IMAPCLI_HOST", "imap.example.com")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Host != "imap.example.com" {
		t.Errorf("Host = %q, want %q", cfg.Host, "imap.example.com")
	}
}

func TestLoadFromEnv_Port(t *testing.T) {
	t.Setenv("IMAPCLI_PORT", "1143")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Port != 1143 {
		t.Errorf("Port = %d, want 1143", cfg.Port)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		key    string
		values []string
		get    func(*Config) bool
	}{
		{"IMAPCLI_TLS", []string{"1", "true", "yes", "TRUE", "Yes"}, func(c *Config) bool { return c.TLS }},
		{"IMAPCLI_INSECURE", []string{"1", "true"}, func(c *Config) bool { return c.Insecure }},
		{"IMAPCLI_COLOR", []string{"yes"}, func(c *Config) bool { return c.Color }},
		{"IMAPCLI_SSH_AGENT", []string{"1"}, func(c *Config) bool { return c.UseSSHAgent }},
	}

	for _, tt := range tests {
		for _, v := range tt.values {
			t.Run(tt.key+"="+v, func(t *testing.T) {
				t.Setenv(tt.key, v)
				cfg := &Config{}
				LoadFromEnv(cfg)
				if !tt.get(cfg) {
					t.Errorf("%s=%s should enable the field", tt.key, v)
				}
			})
		}
	}
}

func TestLoadFromEnv_FalseyBoolIgnored(t *testing.T) {
	t.Setenv("IMAPCLI_TLS", "no")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.TLS {
		t.Error("TLS should stay false for \"no\"")
	}
}

func TestLoadFromEnv_Timeout(t *testing.T) {
	t.Setenv("IMAPCLI_TIMEOUT", "10")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
}

func TestLoadFromEnv_SSHFields(t *testing.T) {
	t.Setenv("IMAPCLI_TUNNEL", "admin@bastion:2222")
	t.Setenv("IMAPCLI_SSH_KEY", "/home/user/.ssh/id_ed25519")
	t.Setenv("IMAPCLI_SSH_PASSWORD", "true")
	t.Setenv("IMAPCLI_STRICT_HOSTKEY", "yes")
	t.Setenv("IMAPCLI_KNOWN_HOSTS", "/custom/known_hosts")

	cfg := &Config{}
	LoadFromEnv(cfg)

	if cfg.TunnelSpec != "admin@bastion:2222" {
		t.Errorf("TunnelSpec = %q", cfg.TunnelSpec)
	}
	if cfg.SSHKeyPath != "/home/user/.ssh/id_ed25519" {
		t.Errorf("SSHKeyPath = %q", cfg.SSHKeyPath)
	}
	if !cfg.SSHPassword {
		t.Error("SSHPassword should be true")
	}
	if !cfg.StrictHostKey {
		t.Error("StrictHostKey should be true")
	}
	if cfg.KnownHostsPath != "/custom/known_hosts" {
		t.Errorf("KnownHostsPath = %q", cfg.KnownHostsPath)
	}
}

func TestLoadFromEnv_LogFile(t *testing.T) {
	t.Setenv("IMAPCLI_LOG", "/tmp/session.log")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.LogFile != "/tmp/session.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	t.Setenv("IMAPCLI_HOST", "")
	t.Setenv("IMAPCLI_PORT", "")

	cfg := &Config{Host: "original", Port: 1234}
	LoadFromEnv(cfg)

	if cfg.Host != "original" {
		t.Errorf("Host was overridden: %q", cfg.Host)
	}
	if cfg.Port != 1234 {
		t.Errorf("Port was overridden: %d", cfg.Port)
	}
}

func TestLoadFromEnv_InvalidIntIgnored(t *testing.T) {
	t.Setenv("IMAPCLI_PORT", "not-a-number")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Port != 0 {
		t.Errorf("Port should be 0 for invalid input, got %d", cfg.Port)
	}
}

func TestLoadFromEnv_Verbose(t *testing.T) {
	t.Setenv("IMAPCLI_VERBOSE", "3")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3", cfg.Verbose)
	}
}
