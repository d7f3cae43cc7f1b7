package core

import (
	"os"
	"testing"
	"time"

	"tcpchat/config"
	cerrors "tcpchat/internal/errors"
	"tcpchat/util"
)

// TestBuild_Listen verifies Build produces a ListenMode for a port.
func TestBuild_Listen(t *testing.T) {
	cfg := config.Default()
	cfg.Port = 8000
	cfg.BindAddress = "127.0.0.1"
	cfg.WSAddress = ":8081"
	cfg.QueueBytes = 1 << 16
	cfg.WriteTimeout = time.Second

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	lm, ok := mode.(*ListenMode)
	if !ok {
		t.Fatalf("expected *ListenMode, got %T", mode)
	}
	if lm.Address != "127.0.0.1:8000" {
		t.Errorf("Address = %q", lm.Address)
	}
	if lm.WSAddress != ":8081" || lm.QueueBytes != 1<<16 || lm.WriteTimeout != time.Second {
		t.Errorf("settings not carried over: %+v", lm)
	}
	if lm.Registry == nil || lm.Metrics == nil {
		t.Error("registry and metrics must be wired")
	}
	if lm.Limiter != nil {
		t.Error("limiter should be off without --accept-rate")
	}
}

// TestBuild_ListenThrottled verifies the accept limiter is wired.
func TestBuild_ListenThrottled(t *testing.T) {
	cfg := config.Default()
	cfg.Port = 8000
	cfg.AcceptRate = 5
	cfg.AcceptBurst = 10

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	if mode.(*ListenMode).Limiter == nil {
		t.Error("limiter should be on")
	}
}

// TestBuild_Connect verifies Build produces a ConnectMode for -C.
func TestBuild_Connect(t *testing.T) {
	cfg := config.Default()
	cfg.Connect = "localhost:8000"
	cfg.Color = config.ColorNever

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	cm, ok := mode.(*ConnectMode)
	if !ok {
		t.Fatalf("expected *ConnectMode, got %T", mode)
	}
	if cm.Address != "localhost:8000" || cm.Attempts != config.DefaultDialAttempts {
		t.Errorf("unexpected client settings: %+v", cm)
	}
	if cm.Color {
		t.Error("color should be off with --color=never")
	}
}

// TestBuild_Invalid verifies validation runs before building.
func TestBuild_Invalid(t *testing.T) {
	_, err := Build(config.Default(), util.NewLogger(0))
	var ce *cerrors.ConfigError
	if !cerrors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

// TestUseColor_AutoOnPipe verifies auto mode stays plain off a terminal.
func TestUseColor_AutoOnPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	if useColor(config.ColorAuto, w) {
		t.Error("a pipe is not a terminal")
	}
	if useColor(config.ColorAuto, nil) {
		t.Error("nil output is not a terminal")
	}
}
