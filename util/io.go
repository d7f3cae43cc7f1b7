package util

import (
	"context"
	"errors"
	"io"
	"net"
)

// DefaultBufSize is the read chunk size for one connection read (16 KiB).
// Lines longer than a chunk are reassembled by the session layer.
const DefaultBufSize = 16 * 1024

// BidirectionalCopy shuffles bytes between a chat connection and a local
// reader/writer pair (stdin and the terminal renderer in client mode)
// until the server closes the stream or the context is cancelled.
//
// A local reader blocked in Read (an idle terminal) is abandoned rather
// than waited for; its goroutine ends on its next read.
func BidirectionalCopy(ctx context.Context, conn net.Conn, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// server → local output
	outErr := make(chan error, 1)
	go func() {
		_, err := io.Copy(w, conn)
		outErr <- err
		cancel()
	}()

	// local input → server
	inErr := make(chan error, 1)
	go func() {
		_, err := io.Copy(conn, r)
		// Half-close so the server sees end-of-stream and flushes any
		// unterminated last line, while its replies keep flowing back.
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.CloseWrite() //nolint:errcheck
		}
		inErr <- err
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblock the pending read
	errs := []error{<-outErr}
	select {
	case err := <-inErr:
		errs = append(errs, err)
	default:
	}

	for _, err := range errs {
		if !IsHarmless(err) {
			return err
		}
	}
	return nil
}

// IsHarmless reports whether err is the ordinary end of a connection:
// EOF, a closed pipe, or an operation on an already closed socket.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
