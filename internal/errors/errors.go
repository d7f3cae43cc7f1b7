// Package errors provides the error vocabulary of the chat server.
//
// Protocol errors are sentinels: the command interpreter matches them
// with Is and answers the client with a single ERROR line.  Transport
// and listener failures carry structured context (operation, address,
// retryability) so the event loop can decide between retrying,
// terminating one session, or stopping the process.
package errors

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ── Protocol sentinels ───────────────────────────────────────────────

var (
	ErrNameTaken       = errors.New("nickname already in use")
	ErrNotRegistered   = errors.New("session has no nickname")
	ErrNotInRoom       = errors.New("session is not in a room")
	ErrUnknownTarget   = errors.New("no session with that nickname")
	ErrMissingArgument = errors.New("wrong number of arguments")
	ErrEmptyMessage    = errors.New("empty message")
)

// ── Runtime sentinels ────────────────────────────────────────────────

var (
	ErrNotMember      = errors.New("session is not a member of the room")
	ErrSessionClosed  = errors.New("session transport already closed")
	ErrQueueFull      = errors.New("outbound queue full")
	ErrListenerFailed = errors.New("listener failed")
	ErrThrottled      = errors.New("connection rate exceeded")
)

// IsProtocol reports whether err is a client-caused protocol error,
// i.e. one that is answered with ERROR and leaves the session open.
func IsProtocol(err error) bool {
	switch {
	case errors.Is(err, ErrNameTaken),
		errors.Is(err, ErrNotRegistered),
		errors.Is(err, ErrNotInRoom),
		errors.Is(err, ErrUnknownTarget),
		errors.Is(err, ErrMissingArgument),
		errors.Is(err, ErrEmptyMessage):
		return true
	}
	return false
}

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // "listen", "accept", "read", "write", "close", "dial"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, detecting retryability from the
// underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsRefused reports whether the remote end actively refused the
// connection, which for the client usually means the server is not up
// yet.
func IsRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // still the only accept-side hint
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports ───────────────────────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
