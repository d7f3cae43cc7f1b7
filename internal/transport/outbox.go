package transport

import (
	"sync"
	"time"

	cerrors "tcpchat/internal/errors"
	"tcpchat/internal/metrics"
)

// DefaultOutboxLimit is the backlog budget used when NewOutbox is given
// none.
const DefaultOutboxLimit = 4 << 20

// overflowDrain bounds each write made while flushing an overflowed
// outbox that has no write timeout of its own.
const overflowDrain = 5 * time.Second

// Outbox is the outbound half of a session: a byte-bounded line queue
// drained by its own writer goroutine.
//
// Send never blocks the caller.  A client counts as slow only when a
// write misses its deadline or its backlog passes the limit.  A missed
// deadline closes the connection at once.  An overflow stops further
// sends, lets the writer flush what is already queued and then closes
// the connection.  Either way the session's reader fails and the
// session is reported as gone.
//
// Ready lets the session's reader hold off while its own client is
// behind, so a single sender cannot outrun the writers it feeds.
type Outbox struct {
	conn         Conn
	limit        int
	writeTimeout time.Duration
	metrics      *metrics.Collector

	mu         sync.Mutex
	lines      [][]byte
	backlog    int // bytes queued or being written
	closed     bool
	overflowed bool
	ready      chan struct{} // closed while the backlog is below the resume mark

	wake chan struct{}
	done chan struct{}
}

// NewOutbox starts the writer goroutine for conn.  limit is the backlog
// budget in bytes (<= 0 selects DefaultOutboxLimit); writeTimeout 0
// disables write deadlines.
func NewOutbox(conn Conn, limit int, writeTimeout time.Duration, m *metrics.Collector) *Outbox {
	if limit <= 0 {
		limit = DefaultOutboxLimit
	}
	ready := make(chan struct{})
	close(ready)
	o := &Outbox{
		conn:         conn,
		limit:        limit,
		writeTimeout: writeTimeout,
		metrics:      m,
		ready:        ready,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	go o.writer()
	return o
}

// Send queues line for delivery.  It returns ErrSessionClosed once the
// outbox has been closed or has failed, and ErrQueueFull when this call
// would push the backlog past the limit.  A line is always accepted
// into an empty queue, however long.
func (o *Outbox) Send(line []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return cerrors.ErrSessionClosed
	}
	if o.backlog > 0 && o.backlog+len(line) > o.limit {
		o.closed = true
		o.overflowed = true
		if o.writeTimeout <= 0 {
			// Bound a write that may already be blocked.
			o.conn.SetWriteDeadline(time.Now().Add(overflowDrain)) //nolint:errcheck
		}
		o.signal()
		return cerrors.ErrQueueFull
	}

	o.lines = append(o.lines, line)
	o.backlog += len(line)
	if o.backlog >= o.pauseMark() && o.isReady() {
		o.ready = make(chan struct{})
	}
	o.signal()
	return nil
}

// Close stops accepting lines.  Lines already queued are still written
// before the connection is closed; use Done to wait for that.
// A second Close returns ErrSessionClosed.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return cerrors.ErrSessionClosed
	}
	o.closed = true
	o.signal()
	return nil
}

// Ready returns a channel that is closed while the backlog is small
// enough for the session to take more input.  It is also closed for
// good once the writer has exited.
func (o *Outbox) Ready() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ready
}

// Done is closed once the writer has exited and the connection is
// closed.
func (o *Outbox) Done() <-chan struct{} { return o.done }

func (o *Outbox) writer() {
	defer close(o.done)
	defer o.conn.Close() //nolint:errcheck
	defer o.release()

	for {
		batch, ok := o.next()
		if !ok {
			return
		}
		for _, line := range batch {
			o.conn.SetWriteDeadline(o.deadline()) //nolint:errcheck
			n, err := o.conn.Write(line)
			o.metrics.BytesSent(int64(n))
			if err != nil {
				// Closing the connection (deferred) wakes the reader,
				// which turns this into a normal session termination.
				o.abandon()
				return
			}
			o.written(len(line))
		}
	}
}

// next waits for queued lines.  It reports false once the outbox is
// closed and empty.
func (o *Outbox) next() ([][]byte, bool) {
	for {
		o.mu.Lock()
		batch, closed := o.lines, o.closed
		o.lines = nil
		o.mu.Unlock()

		if len(batch) > 0 {
			return batch, true
		}
		if closed {
			return nil, false
		}
		<-o.wake
	}
}

func (o *Outbox) deadline() time.Time {
	o.mu.Lock()
	overflowed := o.overflowed
	o.mu.Unlock()

	switch {
	case o.writeTimeout > 0:
		return time.Now().Add(o.writeTimeout)
	case overflowed:
		return time.Now().Add(overflowDrain)
	}
	return time.Time{}
}

func (o *Outbox) written(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backlog -= n
	if o.backlog <= o.resumeMark() && !o.isReady() {
		close(o.ready)
	}
}

// abandon drops whatever is queued after a failed write.
func (o *Outbox) abandon() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.lines = nil
	o.backlog = 0
}

func (o *Outbox) release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.isReady() {
		close(o.ready)
	}
}

// signal wakes the writer without blocking.  Callers hold o.mu.
func (o *Outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// isReady reports whether o.ready is closed.  Callers hold o.mu.
func (o *Outbox) isReady() bool {
	select {
	case <-o.ready:
		return true
	default:
		return false
	}
}

func (o *Outbox) pauseMark() int  { return o.limit / 4 }
func (o *Outbox) resumeMark() int { return o.limit / 8 }
