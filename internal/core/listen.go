package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"tcpchat/internal/chat"
	cerrors "tcpchat/internal/errors"
	"tcpchat/internal/gateway"
	"tcpchat/internal/limiter"
	"tcpchat/internal/metrics"
	"tcpchat/internal/retry"
	"tcpchat/internal/session"
	"tcpchat/internal/transport"
	"tcpchat/util"
)

// ListenMode is the chat server.  One goroutine (the loop) owns every
// session and room; per-connection reader goroutines and the accept
// goroutines only post events to it, and per-session writers drain
// outbound queues.  Nothing the loop does blocks on a client.
//
// A reader hands the loop one chunk at a time and waits until it has
// been dispatched and its own client has caught up on the replies
// before reading again, so a fast sender is slowed to the pace of its
// own connection instead of flooding the queues of the others.
type ListenMode struct {
	Address   string // TCP listen address, "host:port"
	WSAddress string // optional websocket gateway address

	ReadBufferSize    int
	QueueBytes        int // outbound backlog budget per session
	WriteTimeout      time.Duration
	MaxAcceptFailures int
	ShutdownGrace     time.Duration

	Registry chat.Registry
	Limiter  *limiter.IPLimiter
	Metrics  *metrics.Collector
	Logger   *util.Logger

	// Listening, if non-nil, receives the bound TCP address.
	Listening chan<- net.Addr
}

// ── Events ───────────────────────────────────────────────────────────

type eventKind int

const (
	evAccept eventKind = iota // a new connection
	evData                    // bytes read from a session
	evClosed                  // a session's stream ended
	evFatal                   // a listener died
)

type event struct {
	kind eventKind
	id   uuid.UUID
	conn transport.Conn
	data []byte
	ack  chan<- struct{} // evData: signalled once data is dispatched
	err  error
}

// loop is the state owned by the event loop goroutine.
type loop struct {
	mode    *ListenMode
	interp  *chat.Interpreter
	hub     *chat.Hub
	events  chan event
	done    chan struct{} // closed when the loop stops consuming
	conns   map[uuid.UUID]transport.Conn
	writers sync.WaitGroup
}

// post delivers ev to the loop unless it has stopped.
func (l *loop) post(ev event) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- ev:
		return true
	case <-l.done:
		return false
	}
}

// Run listens, serves until ctx is cancelled or a listener fails, and
// then shuts every session down.
func (m *ListenMode) Run(ctx context.Context) error {
	m.defaults()

	ln, err := transport.Listen(ctx, m.Address)
	if err != nil {
		return fmt.Errorf("%w: %w", cerrors.ErrListenerFailed, cerrors.Wrap("listen", m.Address, err))
	}
	m.Logger.Info("listening on %s", ln.Addr())
	if m.Listening != nil {
		m.Listening <- ln.Addr()
	}

	interp := chat.NewInterpreter(m.Registry, m.Logger, m.Metrics)
	l := &loop{
		mode:   m,
		interp: interp,
		hub:    interp.Hub(),
		events: make(chan event, 64),
		done:   make(chan struct{}),
		conns:  make(map[uuid.UUID]transport.Conn),
	}

	srvCtx, cancel := context.WithCancel(ctx)
	var bg sync.WaitGroup

	bg.Add(1)
	go func() {
		defer bg.Done()
		l.acceptTCP(srvCtx, ln)
	}()
	go func() {
		<-srvCtx.Done()
		ln.Close()
	}()

	if m.WSAddress != "" {
		gw := gateway.New(func(c transport.Conn) bool {
			return l.post(event{kind: evAccept, conn: c})
		}, m.Limiter, m.Metrics, m.Logger)
		bg.Add(1)
		go func() {
			defer bg.Done()
			if err := gw.Serve(srvCtx, m.WSAddress, nil); err != nil {
				l.post(event{kind: evFatal, err: fmt.Errorf("%w: %w", cerrors.ErrListenerFailed, cerrors.Wrap("listen", m.WSAddress, err))})
			}
		}()
	}

	if m.Limiter != nil {
		go m.Limiter.Run(srvCtx, limiter.DefaultSweepInterval)
	}

	runErr := l.run(srvCtx)

	cancel()
	close(l.done)
	bg.Wait()
	l.shutdown()
	return runErr
}

func (m *ListenMode) defaults() {
	if m.Logger == nil {
		m.Logger = util.NewLogger(0)
	}
	if m.Registry == nil {
		m.Registry = chat.NewMemory(m.Metrics)
	}
	if m.MaxAcceptFailures <= 0 {
		m.MaxAcceptFailures = 1
	}
}

// run is the event loop proper.
func (l *loop) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-l.events:
			switch ev.kind {
			case evAccept:
				l.open(ev.conn)
			case evData:
				l.data(ev.id, ev.data)
				ev.ack <- struct{}{}
			case evClosed:
				l.closed(ev.id, ev.err)
			case evFatal:
				l.mode.Logger.Error("%v", ev.err)
				return ev.err
			}
		}
	}
}

func (l *loop) open(conn transport.Conn) {
	m := l.mode
	out := transport.NewOutbox(conn, m.QueueBytes, m.WriteTimeout, m.Metrics)
	s := session.New(out, conn.RemoteAddr().String(), m.Logger)
	l.hub.Open(s)
	l.conns[s.ID] = conn

	l.writers.Add(1)
	go func() {
		<-out.Done()
		l.writers.Done()
	}()
	go l.read(s.ID, conn, out)
}

func (l *loop) data(id uuid.UUID, data []byte) {
	s, ok := l.mode.Registry.Session(id)
	if !ok {
		return // terminated while the reader was still running
	}
	l.mode.Metrics.BytesReceived(int64(len(data)))
	for _, line := range s.Feed(data) {
		if l.interp.Dispatch(s, line) {
			return
		}
	}
}

func (l *loop) closed(id uuid.UUID, err error) {
	delete(l.conns, id)
	s, ok := l.mode.Registry.Session(id)
	if !ok {
		return
	}
	reason := "eof"
	if !errors.Is(err, io.EOF) {
		reason = err.Error()
		s.Logger.Verbose("transport error: %v", err)
	}
	l.interp.EndOfStream(s, reason)
}

// read copies bytes from conn to the loop until the stream ends.
func (l *loop) read(id uuid.UUID, conn transport.Conn, out *transport.Outbox) {
	var buf []byte
	if size := l.mode.ReadBufferSize; size > 0 && size != util.DefaultBufSize {
		buf = make([]byte, size)
	} else {
		pooled := util.GetBuf()
		defer util.PutBuf(pooled)
		buf = *pooled
	}

	ack := make(chan struct{}, 1)
	for {
		select {
		case <-out.Ready():
		case <-l.done:
			return
		}

		n, err := conn.Read(buf)
		if n > 0 {
			data := append([]byte(nil), buf[:n]...)
			if !l.post(event{kind: evData, id: id, data: data, ack: ack}) {
				return
			}
			select {
			case <-ack:
			case <-l.done:
				return
			}
		}
		if err != nil {
			if util.IsHarmless(err) {
				err = io.EOF
			}
			l.post(event{kind: evClosed, id: id, err: err})
			return
		}
	}
}

// acceptTCP accepts until the listener is closed.  Temporary errors
// are retried with backoff; a run of MaxAcceptFailures consecutive
// errors, or any permanent one, kills the server.
func (l *loop) acceptTCP(ctx context.Context, ln net.Listener) {
	m := l.mode
	backoff := retry.AcceptBackoff()
	breaker := retry.NewBreaker(m.MaxAcceptFailures, func(from, to retry.State) {
		m.Logger.Warn("accept breaker %s -> %s", from, to)
	})

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			m.Metrics.AcceptFailed(err.Error())
			wrapped := cerrors.Wrap("accept", ln.Addr().String(), err)

			if breaker.Failure() || !wrapped.Retryable {
				l.post(event{kind: evFatal, err: fmt.Errorf("%w: %w", cerrors.ErrListenerFailed, wrapped)})
				return
			}
			wait := backoff.Delay(breaker.Failures())
			m.Logger.Warn("%v; retrying in %s", wrapped, wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		breaker.Success()

		if err := m.Limiter.Admit(conn.RemoteAddr()); err != nil {
			m.Metrics.Throttled()
			m.Logger.Warn("connection from %s rejected: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}
		if !l.post(event{kind: evAccept, conn: conn}) {
			conn.Close()
			return
		}
	}
}

// shutdown closes every session and waits, up to the grace period,
// for their queued output to be written.
func (l *loop) shutdown() {
	m := l.mode
	l.hub.Shutdown("server shutdown")

	// Connections accepted but never picked up by the loop.
	for {
		select {
		case ev := <-l.events:
			if ev.kind == evAccept {
				ev.conn.Close()
			}
			continue
		default:
		}
		break
	}

	flushed := make(chan struct{})
	go func() {
		l.writers.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
	case <-time.After(m.ShutdownGrace):
		m.Logger.Warn("shutdown grace period expired with output still queued")
		for _, conn := range l.conns {
			conn.Close()
		}
	}

	m.Logger.Verbose("final metrics:\n%s", m.Metrics.JSON())
}
