// Package session holds the per-connection state of a chat client:
// identity, lifecycle phase, current room and the reassembly buffer
// for unterminated input.
//
// A Session is owned by the event loop goroutine and is not safe for
// concurrent use.  Only its outbound side (see Outbound) may be touched
// from other goroutines.
package session

import (
	"bytes"
	"strings"

	"github.com/google/uuid"

	"tcpchat/util"
)

// Phase is the protocol lifecycle state of a session.
type Phase int

const (
	// Unregistered sessions have no nickname yet.
	Unregistered Phase = iota
	// Registered sessions have a nickname and no room.
	Registered
	// InRoom sessions have a nickname and exactly one room.
	InRoom
)

func (p Phase) String() string {
	switch p {
	case Unregistered:
		return "unregistered"
	case Registered:
		return "registered"
	case InRoom:
		return "in-room"
	default:
		return "unknown"
	}
}

// Outbound is the write side of a session's transport.
// *transport.Outbox is the production implementation.
type Outbound interface {
	Send(line []byte) error
	Close() error
}

// Session encapsulates the runtime state of one connected client.
type Session struct {
	ID     uuid.UUID
	Remote string
	Logger *util.Logger

	base    *util.Logger
	out     Outbound
	nick    string
	room    string
	phase   Phase
	pending []byte
}

// New creates an Unregistered session writing through out.
func New(out Outbound, remote string, logger *util.Logger) *Session {
	id := uuid.New()
	if logger == nil {
		logger = util.NewLogger(0)
	}
	base := logger.With("session", id.String()[:8]).With("remote", remote)
	return &Session{
		ID:     id,
		Remote: remote,
		Logger: base,
		base:   base,
		out:    out,
	}
}

// Nick returns the nickname, or "" while Unregistered.
func (s *Session) Nick() string { return s.nick }

// Room returns the current room name, or "" unless InRoom.
func (s *Session) Room() string { return s.room }

// Phase returns the lifecycle phase.
func (s *Session) Phase() Phase { return s.phase }

// Rename sets the nickname and returns the previous one.  The first
// rename moves the session from Unregistered to Registered; later ones
// leave the phase alone.
func (s *Session) Rename(nick string) (previous string) {
	previous = s.nick
	s.nick = nick
	s.Logger = s.base.With("nick", nick)
	if s.phase == Unregistered {
		s.phase = Registered
	}
	return previous
}

// Enter records membership of room.  The caller has already checked
// the session is registered.
func (s *Session) Enter(room string) {
	s.room = room
	s.phase = InRoom
}

// Exit clears the room reference and returns to Registered.
func (s *Session) Exit() {
	s.room = ""
	s.phase = Registered
}

// ── Framing ──────────────────────────────────────────────────────────

// Feed appends data to the reassembly buffer and returns every line it
// completed, without terminators, in arrival order.  The unterminated
// remainder stays buffered for the next call.
func (s *Session) Feed(data []byte) []string {
	s.pending = append(s.pending, data...)

	var lines []string
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, decode(s.pending[:i]))
		s.pending = s.pending[i+1:]
	}

	if len(s.pending) == 0 {
		s.pending = nil
	}
	return lines
}

// Flush returns and clears the unterminated remainder.  Used when the
// peer closes the stream mid-line.
func (s *Session) Flush() (string, bool) {
	if len(s.pending) == 0 {
		return "", false
	}
	line := decode(s.pending)
	s.pending = nil
	return line, true
}

// Buffered reports the number of bytes awaiting a terminator.
func (s *Session) Buffered() int { return len(s.pending) }

// decode turns raw line bytes into text, replacing invalid UTF-8.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// ── Output ───────────────────────────────────────────────────────────

// Send queues one protocol line, adding the terminator.
func (s *Session) Send(line string) error {
	return s.out.Send([]byte(line + "\n"))
}

// Close stops output; queued lines are still flushed by the transport.
func (s *Session) Close() error {
	return s.out.Close()
}
