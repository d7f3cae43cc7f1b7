// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"tcpchat/config"
	"tcpchat/internal/core"
	"tcpchat/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X tcpchat/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// output is where usage, version and dry-run reports go.
var output io.Writer = os.Stderr //nolint:gochecknoglobals

// Execute parses args and runs the server or the client.
//
// Settings are layered: defaults, then .env, then TCPCHAT_* variables,
// then flags.
func Execute(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("tcpchat", flag.ContinueOnError)
	fs.SetOutput(output)

	// ── server ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.BindAddress, "bind", "b", cfg.BindAddress, "Address to bind (default all interfaces)")
	fs.StringVar(&cfg.WSAddress, "ws-addr", cfg.WSAddress, "Also serve websocket clients, /stats and /health on host:port")
	fs.IntVar(&cfg.ReadBufferSize, "read-buffer", cfg.ReadBufferSize, "Bytes per connection read")
	fs.IntVarP(&cfg.QueueBytes, "queue-bytes", "q", cfg.QueueBytes, "Output bytes buffered per client before it is dropped")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Deadline for one write to a client (0 = none)")
	fs.Float64Var(&cfg.AcceptRate, "accept-rate", cfg.AcceptRate, "New connections per second per IP (0 = unlimited)")
	fs.IntVar(&cfg.AcceptBurst, "accept-burst", cfg.AcceptBurst, "Connection burst allowed per IP")
	fs.IntVar(&cfg.MaxAcceptFailures, "max-accept-failures", cfg.MaxAcceptFailures, "Consecutive accept errors before giving up")
	fs.DurationVar(&cfg.ShutdownGrace, "shutdown-grace", cfg.ShutdownGrace, "Time allowed to flush clients on shutdown")

	// ── client ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Connect, "connect", "C", cfg.Connect, "Run the terminal client against host:port")
	fs.IntVar(&cfg.DialAttempts, "retries", cfg.DialAttempts, "Connection attempts before giving up")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "Timeout for one connection attempt")
	fs.StringVar(&cfg.Color, "color", cfg.Color, "Colorize server lines: auto, always or never")

	// ── output ───────────────────────────────────────────────────
	// CountVar resets its target; keep the environment's level for
	// when -v is not given.
	baseVerbose := cfg.Verbose
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "n", cfg.DryRun, "Validate the configuration and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(output, "tcpchat %s\n", version)
		return nil
	}
	switch {
	case !fs.Changed("verbose"):
		cfg.Verbose = baseVerbose
	case cfg.Verbose > 3:
		cfg.Verbose = 3
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── build ────────────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		printPlan(cfg)
		return nil
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		return nil // -C mode, or TCPCHAT_PORT from the environment
	case 1:
		if cfg.Connect != "" {
			return fmt.Errorf("unexpected argument %q in client mode", remaining[0])
		}
		port, err := config.ParsePort(remaining[0])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Port = port
		return nil
	default:
		return fmt.Errorf("too many arguments (use --help for usage)")
	}
}

func printPlan(cfg *config.Config) {
	if cfg.ClientMode() {
		fmt.Fprintf(output, "would connect to %s (%d attempts, color %s)\n",
			cfg.Connect, cfg.DialAttempts, cfg.Color)
		return
	}
	fmt.Fprintf(output, "would listen on %s", cfg.ListenAddr())
	if cfg.WSAddress != "" {
		fmt.Fprintf(output, " and %s (websocket)", cfg.WSAddress)
	}
	fmt.Fprintf(output, "; queue %d bytes, write timeout %s\n", cfg.QueueBytes, cfg.WriteTimeout)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(output, `tcpchat – multi-room line chat server v%s

Usage:
  tcpchat [options] <port>          Serve
  tcpchat -C <host:port> [options]  Terminal client

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(output, `
Protocol (one command per line):
  /nick <name>   /join <room>   /leave   /bye   /priv <name> <text>
  anything else is a message to your room

Environment:
  Every option can be set as TCPCHAT_<NAME> (for example TCPCHAT_QUEUE_BYTES),
  in the environment or a .env file in the working directory.

Examples:
  tcpchat 8000                      Serve on port 8000
  tcpchat --ws-addr :8081 8000      Also accept browsers on :8081/ws
  tcpchat -C localhost:8000         Chat from this terminal
`)
}
