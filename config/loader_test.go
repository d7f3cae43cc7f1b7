package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cerrors "tcpchat/internal/errors"
)

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("TCPCHAT_PORT", "9000")
	t.Setenv("TCPCHAT_BIND", "127.0.0.1")
	t.Setenv("TCPCHAT_QUEUE_BYTES", "65536")
	t.Setenv("TCPCHAT_WRITE_TIMEOUT", "250ms")
	t.Setenv("TCPCHAT_ACCEPT_RATE", "1.5")
	t.Setenv("TCPCHAT_DRY_RUN", "true")

	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.BindAddress != "127.0.0.1" {
		t.Errorf("BindAddress = %q", cfg.BindAddress)
	}
	if cfg.QueueBytes != 65536 {
		t.Errorf("QueueBytes = %d, want 65536", cfg.QueueBytes)
	}
	if cfg.WriteTimeout != 250*time.Millisecond {
		t.Errorf("WriteTimeout = %v, want 250ms", cfg.WriteTimeout)
	}
	if cfg.AcceptRate != 1.5 {
		t.Errorf("AcceptRate = %v, want 1.5", cfg.AcceptRate)
	}
	if !cfg.DryRun {
		t.Error("DryRun should be true")
	}
}

func TestLoadFromEnv_UnsetKeepsDefaults(t *testing.T) {
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.QueueBytes != DefaultQueueBytes {
		t.Errorf("QueueBytes = %d, want default %d", cfg.QueueBytes, DefaultQueueBytes)
	}
	if cfg.Color != ColorAuto {
		t.Errorf("Color = %q, want %q", cfg.Color, ColorAuto)
	}
}

func TestLoadFromEnv_ParseError(t *testing.T) {
	t.Setenv("TCPCHAT_QUEUE_BYTES", "lots")

	err := LoadFromEnv(Default())
	var ce *cerrors.ConfigError
	if !cerrors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !strings.Contains(err.Error(), "TCPCHAT_QUEUE_BYTES") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.env")
	if err := os.WriteFile(path, []byte("TCPCHAT_WS_ADDR=:8081\nTCPCHAT_VERBOSE=2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// The environment wins over the file.
	t.Setenv("TCPCHAT_VERBOSE", "3")
	// godotenv sets variables process-wide; make sure the test cleans up.
	t.Setenv("TCPCHAT_WS_ADDR", "")
	os.Unsetenv("TCPCHAT_WS_ADDR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSAddress != ":8081" {
		t.Errorf("WSAddress = %q, want :8081", cfg.WSAddress)
	}
	if cfg.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3 (environment overrides .env)", cfg.Verbose)
	}
}

func TestLoadDotEnv_MissingExplicitFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected an error for a missing explicit file")
	}
}

func TestLoadDotEnv_MissingDefaultFile(t *testing.T) {
	chdir(t, t.TempDir())
	if err := LoadDotEnv(); err != nil {
		t.Errorf("missing default .env should be ignored: %v", err)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
