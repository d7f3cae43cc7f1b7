package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	cerrors "tcpchat/internal/errors"
	"tcpchat/internal/retry"
	"tcpchat/internal/transport"
	"tcpchat/util"
)

// ConnectMode is the terminal client: it dials the server, sends
// stdin lines verbatim and prints every server line.
type ConnectMode struct {
	Dialer   transport.Dialer
	Address  string
	Attempts int  // dial attempts before giving up
	Color    bool // colorize server lines by protocol verb
	Logger   *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the server, retrying with backoff, and relays until either
// side closes.  The transport is closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	m.Logger.Verbose("connecting to %s", m.Address)

	var conn net.Conn
	err := retry.DialBackoff(m.Attempts).Do(ctx, func(attempt int) error {
		c, err := m.Dialer.Dial(ctx, "tcp", m.Address)
		if err != nil {
			m.Logger.Verbose("attempt %d: %v", attempt, err)
			// A refused connection means the server is not up yet; other
			// non-temporary failures (bad address, unknown host) will not
			// go away by waiting.
			if !cerrors.IsRetryable(err) && !cerrors.IsRefused(err) {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Info("connected to %s", conn.RemoteAddr())

	out := m.stdout()
	if m.Color {
		r := newRenderer(out)
		defer r.Flush()
		out = r
	}
	return util.BidirectionalCopy(ctx, conn, m.stdin(), out)
}
