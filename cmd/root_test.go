package cmd

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"tcpchat/config"
)

// captureOutput redirects usage and reports for one test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := output
	output = buf
	t.Cleanup(func() { output = prev })
	chdir(t, t.TempDir()) // no stray .env
	return buf
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	out := captureOutput(t)
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "tcpchat ") {
		t.Errorf("version output = %q", out.String())
	}
}

// TestExecute_Help verifies --help (and no args) returns without error.
func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {}} {
		name := "no-args"
		if len(args) > 0 {
			name = args[0]
		}
		t.Run(name, func(t *testing.T) {
			out := captureOutput(t)
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), "tcpchat [options] <port>") {
				t.Errorf("usage missing: %q", out.String())
			}
		})
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--dry-run", "8000"}, "would listen on :8000"},
		{[]string{"-n", "-b", "127.0.0.1", "--ws-addr", ":8081", "8000"}, "127.0.0.1:8000 and :8081"},
		{[]string{"-n", "-C", "localhost:8000", "--color", "never"}, "would connect to localhost:8000"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out := captureOutput(t)
			if err := Execute(context.Background(), tt.args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q should contain %q", out.String(), tt.want)
			}
		})
	}
}

// TestExecute_EnvironmentLayering verifies flags beat TCPCHAT_* values.
func TestExecute_EnvironmentLayering(t *testing.T) {
	out := captureOutput(t)
	t.Setenv("TCPCHAT_PORT", "9000")
	t.Setenv("TCPCHAT_QUEUE_BYTES", "12288")

	if err := Execute(context.Background(), []string{"-n", "--queue-bytes", "65536"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), ":9000") || !strings.Contains(out.String(), "queue 65536 bytes") {
		t.Errorf("unexpected plan: %q", out.String())
	}
}

// TestExecute_Invalid verifies bad configurations are rejected.
func TestExecute_Invalid(t *testing.T) {
	tests := [][]string{
		{"--dry-run"},                          // no port
		{"-n", "0"},                            // port out of range
		{"-n", "http"},                         // not a number
		{"-n", "8000", "9000"},                 // too many
		{"-n", "-C", "localhost:8000", "8000"}, // both modes
		{"-n", "--queue-bytes", "0", "8000"},
		{"--nonexistent-flag"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			captureOutput(t)
			if err := Execute(context.Background(), args); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParsePositional(t *testing.T) {
	cfg := config.Default()
	if err := parsePositional(cfg, []string{"8000"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
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
