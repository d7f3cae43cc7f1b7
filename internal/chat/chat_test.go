package chat

import (
	cerrors "tcpchat/internal/errors"
	"tcpchat/internal/metrics"
	"tcpchat/internal/session"
)

// inbox records what a session was sent.
type inbox struct {
	lines  []string
	closed bool
	fail   bool
}

func (b *inbox) Send(line []byte) error {
	if b.closed {
		return cerrors.ErrSessionClosed
	}
	if b.fail {
		return cerrors.ErrQueueFull
	}
	b.lines = append(b.lines, string(line))
	return nil
}

func (b *inbox) Close() error {
	if b.closed {
		return cerrors.ErrSessionClosed
	}
	b.closed = true
	return nil
}

// take returns and clears the recorded lines, terminators removed.
func (b *inbox) take() []string {
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = l[:len(l)-1]
	}
	b.lines = nil
	return out
}

type fixture struct {
	reg     *Memory
	in      *Interpreter
	metrics *metrics.Collector
}

func newFixture() *fixture {
	m := metrics.New()
	reg := NewMemory(m)
	return &fixture{reg: reg, in: NewInterpreter(reg, nil, m), metrics: m}
}

func (f *fixture) connect() (*session.Session, *inbox) {
	box := &inbox{}
	s := session.New(box, "127.0.0.1:0", nil)
	f.in.Hub().Open(s)
	return s, box
}

// send feeds raw bytes the way the event loop does.
func (f *fixture) send(s *session.Session, data string) {
	for _, line := range s.Feed([]byte(data)) {
		if f.in.Dispatch(s, line) {
			return
		}
	}
}
