package config

import (
	"strings"
	"testing"
	"time"

	cerrors "tcpchat/internal/errors"
)

func serverConfig() *Config {
	cfg := Default()
	cfg.Port = 8000
	return cfg
}

func TestDefault_IsValidServerOncePortIsSet(t *testing.T) {
	if err := serverConfig().Validate(); err != nil {
		t.Fatalf("default server config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string // empty means valid
		wantSub   string
	}{
		{"valid server", func(c *Config) {}, "", ""},
		{"valid client", func(c *Config) { c.Port = 0; c.Connect = "localhost:8000" }, "", ""},
		{"missing port", func(c *Config) { c.Port = 0 }, "port", "required"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "port", "at most 65535"},
		{"port and connect", func(c *Config) { c.Connect = "localhost:8000" }, "connect", "mutually exclusive"},
		{"bad connect", func(c *Config) { c.Port = 0; c.Connect = "no-port" }, "connect", "host:port"},
		{"bad ws addr", func(c *Config) { c.WSAddress = "8081" }, "ws-addr", "host:port"},
		{"ws addr with empty host", func(c *Config) { c.WSAddress = ":8081" }, "", ""},
		{"tiny queue", func(c *Config) { c.QueueBytes = 100 }, "queue-bytes", "at least 4096"},
		{"tiny read buffer", func(c *Config) { c.ReadBufferSize = 16 }, "read-buffer", "at least 512"},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -time.Second }, "write-timeout", "at least"},
		{"bad color", func(c *Config) { c.Color = "sometimes" }, "color", "one of"},
		{"too verbose", func(c *Config) { c.Verbose = 4 }, "verbose", "at most 3"},
		{"rate without burst", func(c *Config) { c.AcceptRate = 2 }, "accept-burst", "at least 1"},
		{"rate with burst", func(c *Config) { c.AcceptRate = 2; c.AcceptBurst = 4 }, "", ""},
		{"no accept failures tolerated", func(c *Config) { c.MaxAcceptFailures = 0 }, "max-accept-failures", "at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := serverConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *cerrors.ConfigError
			if !cerrors.As(err, &ce) {
				t.Fatalf("error %v is not a ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidate_HintsIncluded(t *testing.T) {
	cfg := serverConfig()
	cfg.Color = "rainbow"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "hint:") {
		t.Errorf("expected a hint in %v", err)
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"8000", 8000, false},
		{" 1 ", 1, false},
		{"65535", 65535, false},
		{"0", 0, true},
		{"65536", 0, true},
		{"-1", 0, true},
		{"http", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePort(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePort(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePort(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestListenAddr(t *testing.T) {
	cfg := serverConfig()
	if got := cfg.ListenAddr(); got != ":8000" {
		t.Errorf("ListenAddr = %q, want :8000", got)
	}
	cfg.BindAddress = "127.0.0.1"
	if got := cfg.ListenAddr(); got != "127.0.0.1:8000" {
		t.Errorf("ListenAddr = %q, want 127.0.0.1:8000", got)
	}
}
