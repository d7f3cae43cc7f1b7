package transport

import (
	"bytes"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// WSConn adapts a websocket connection to the line stream the chat
// protocol expects.  Every inbound text or binary message is one line
// (a terminating newline is added when missing); every outbound line
// is sent as one text message without its terminator.
//
// Like the underlying gorilla connection, a WSConn supports one
// concurrent reader and one concurrent writer.
type WSConn struct {
	ws      *websocket.Conn
	remote  net.Addr
	pending []byte
}

// NewWSConn wraps ws.  remote overrides the peer address reported by
// RemoteAddr (for example the client address from X-Forwarded-For);
// nil keeps the socket's own.
func NewWSConn(ws *websocket.Conn, remote net.Addr) *WSConn {
	if remote == nil {
		remote = ws.RemoteAddr()
	}
	return &WSConn{ws: ws, remote: remote}
}

// Read returns bytes from the current message, fetching the next one
// when the previous has been consumed.
func (c *WSConn) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		if len(msg) == 0 || msg[len(msg)-1] != '\n' {
			msg = append(msg, '\n')
		}
		c.pending = msg
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write sends each newline-separated line in p as its own message.
func (c *WSConn) Write(p []byte) (int, error) {
	body := bytes.TrimSuffix(p, []byte{'\n'})
	for _, line := range bytes.Split(body, []byte{'\n'}) {
		if err := c.ws.WriteMessage(websocket.TextMessage, line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close closes the underlying network connection without a close
// handshake, unblocking a pending Read.
func (c *WSConn) Close() error { return c.ws.Close() }

// RemoteAddr returns the peer address.
func (c *WSConn) RemoteAddr() net.Addr { return c.remote }

// SetWriteDeadline bounds the next write.
func (c *WSConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
