// Package transport provides the byte streams chat sessions run over.
// Transports handle the "how" of data movement (plain TCP or a
// websocket upgraded by the gateway) independent of what is said over
// them, which is the chat layer's job.
package transport

import (
	"context"
	"io"
	"net"
	"time"
)

// Conn is the stream a session is bound to.  *net.TCPConn and
// *WSConn both satisfy it.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
	SetWriteDeadline(t time.Time) error
}

// Dialer opens outbound network connections for the terminal client.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}
