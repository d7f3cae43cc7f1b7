// Package metrics provides lock-free counters describing a running chat
// server: connected sessions, traffic, dispatched commands and the
// failures that were reported instead of crashing the loop.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one server process.
type Collector struct {
	sessionsActive   atomic.Int64
	sessionsTotal    atomic.Int64
	bytesIn          atomic.Int64
	bytesOut         atomic.Int64
	linesDispatched  atomic.Int64
	protocolErrors   atomic.Int64
	deliveryFailures atomic.Int64
	roomsCreated     atomic.Int64
	acceptFailures   atomic.Int64
	throttled        atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Sessions ─────────────────────────────────────────────────────────

// SessionOpened increments both the active and total counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// ActiveSessions returns the number of currently connected sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ── Traffic ──────────────────────────────────────────────────────────

// BytesReceived records n bytes read from a client.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to a client.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Protocol ─────────────────────────────────────────────────────────

// LineDispatched counts one complete line handed to the interpreter.
func (c *Collector) LineDispatched() {
	if c == nil {
		return
	}
	c.linesDispatched.Add(1)
}

// LinesDispatched returns the number of interpreted lines.
func (c *Collector) LinesDispatched() int64 {
	if c == nil {
		return 0
	}
	return c.linesDispatched.Load()
}

// ProtocolError counts one ERROR reply.
func (c *Collector) ProtocolError() {
	if c == nil {
		return
	}
	c.protocolErrors.Add(1)
}

// ProtocolErrors returns the number of ERROR replies sent.
func (c *Collector) ProtocolErrors() int64 {
	if c == nil {
		return 0
	}
	return c.protocolErrors.Load()
}

// RoomCreated counts a lazily created room.
func (c *Collector) RoomCreated() {
	if c == nil {
		return
	}
	c.roomsCreated.Add(1)
}

// RoomsCreated returns the number of rooms ever created.
func (c *Collector) RoomsCreated() int64 {
	if c == nil {
		return 0
	}
	return c.roomsCreated.Load()
}

// ── Failures ─────────────────────────────────────────────────────────

// DeliveryFailed records a line that could not be handed to a peer.
func (c *Collector) DeliveryFailed(msg string) {
	if c == nil {
		return
	}
	c.deliveryFailures.Add(1)
	c.recordLast(msg)
}

// DeliveryFailures returns the number of failed deliveries.
func (c *Collector) DeliveryFailures() int64 {
	if c == nil {
		return 0
	}
	return c.deliveryFailures.Load()
}

// AcceptFailed records a failed accept on a listener.
func (c *Collector) AcceptFailed(msg string) {
	if c == nil {
		return
	}
	c.acceptFailures.Add(1)
	c.recordLast(msg)
}

// AcceptFailures returns the number of failed accepts.
func (c *Collector) AcceptFailures() int64 {
	if c == nil {
		return 0
	}
	return c.acceptFailures.Load()
}

// Throttled counts a connection refused by the accept limiter.
func (c *Collector) Throttled() {
	if c == nil {
		return
	}
	c.throttled.Add(1)
}

// ThrottledTotal returns the number of refused connections.
func (c *Collector) ThrottledTotal() int64 {
	if c == nil {
		return 0
	}
	return c.throttled.Load()
}

func (c *Collector) recordLast(msg string) {
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsActive   int64  `json:"sessions_active"`
	SessionsTotal    int64  `json:"sessions_total"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	LinesDispatched  int64  `json:"lines_dispatched"`
	ProtocolErrors   int64  `json:"protocol_errors"`
	DeliveryFailures int64  `json:"delivery_failures"`
	RoomsCreated     int64  `json:"rooms_created"`
	AcceptFailures   int64  `json:"accept_failures"`
	Throttled        int64  `json:"throttled"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:   c.sessionsActive.Load(),
		SessionsTotal:    c.sessionsTotal.Load(),
		BytesIn:          c.bytesIn.Load(),
		BytesOut:         c.bytesOut.Load(),
		LinesDispatched:  c.linesDispatched.Load(),
		ProtocolErrors:   c.protocolErrors.Load(),
		DeliveryFailures: c.deliveryFailures.Load(),
		RoomsCreated:     c.roomsCreated.Load(),
		AcceptFailures:   c.acceptFailures.Load(),
		Throttled:        c.throttled.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
