package core

import (
	"os"

	"github.com/gookit/color"
	"golang.org/x/term"

	"tcpchat/config"
	"tcpchat/internal/chat"
	"tcpchat/internal/limiter"
	"tcpchat/internal/metrics"
	"tcpchat/internal/transport"
	"tcpchat/util"
)

// Build constructs the appropriate Mode from the given configuration.
// This is the single dispatch point between the CLI and the modes.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ClientMode() {
		return buildConnect(cfg, logger), nil
	}
	return buildListen(cfg, logger), nil
}

// ── mode builders ────────────────────────────────────────────────────

func buildListen(cfg *config.Config, logger *util.Logger) *ListenMode {
	m := metrics.New()
	return &ListenMode{
		Address:           cfg.ListenAddr(),
		WSAddress:         cfg.WSAddress,
		ReadBufferSize:    cfg.ReadBufferSize,
		QueueBytes:        cfg.QueueBytes,
		WriteTimeout:      cfg.WriteTimeout,
		MaxAcceptFailures: cfg.MaxAcceptFailures,
		ShutdownGrace:     cfg.ShutdownGrace,
		Registry:          chat.NewMemory(m),
		Limiter:           limiter.New(cfg.AcceptRate, cfg.AcceptBurst),
		Metrics:           m,
		Logger:            logger,
	}
}

func buildConnect(cfg *config.Config, logger *util.Logger) *ConnectMode {
	return &ConnectMode{
		Dialer:   &transport.TCPDialer{Timeout: cfg.DialTimeout},
		Address:  cfg.Connect,
		Attempts: cfg.DialAttempts,
		Color:    useColor(cfg.Color, os.Stdout),
		Logger:   logger,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// useColor resolves the --color mode against the output stream.
func useColor(mode string, out *os.File) bool {
	switch mode {
	case config.ColorAlways:
		color.ForceOpenColor()
		return true
	case config.ColorNever:
		color.Enable = false
		return false
	default:
		return out != nil && term.IsTerminal(int(out.Fd()))
	}
}
