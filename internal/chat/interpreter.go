package chat

import (
	"fmt"
	"strings"

	cerrors "tcpchat/internal/errors"
	"tcpchat/internal/metrics"
	"tcpchat/internal/session"
	"tcpchat/util"
)

// Protocol replies.
const (
	ReplyOK    = "OK"
	ReplyError = "ERROR"
	ReplyBye   = "BYE"
)

// Interpreter executes client lines against the hub.
type Interpreter struct {
	hub     *Hub
	out     *Broadcaster
	logger  *util.Logger
	metrics *metrics.Collector
}

// NewInterpreter builds the broadcaster and hub around reg.  logger
// and m may be nil.
func NewInterpreter(reg Registry, logger *util.Logger, m *metrics.Collector) *Interpreter {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	out := NewBroadcaster(reg, logger, m)
	return &Interpreter{
		hub:     NewHub(reg, out, logger, m),
		out:     out,
		logger:  logger,
		metrics: m,
	}
}

// Hub exposes the session operations to the event loop.
func (in *Interpreter) Hub() *Hub { return in.hub }

// Dispatch runs one line from s.  Blank lines are ignored.  It returns
// true when the session has been terminated and no further input from
// it should be dispatched.
//
// A failure while handling the line never escapes: protocol errors are
// answered with ERROR and anything unexpected is logged and answered
// the same way.
func (in *Interpreter) Dispatch(s *session.Session, line string) (closed bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	in.metrics.LineDispatched()
	s.Logger.Debug("<- %s", line)

	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("panic while handling %q: %v", line, r)
			in.out.Reply(s, ReplyError)
			closed = false
		}
	}()

	cmd, err := Parse(line)
	if err == nil {
		closed, err = in.execute(s, cmd)
	}
	if err != nil {
		in.fail(s, err)
	}
	return closed
}

// EndOfStream handles a peer that went away: a trailing unterminated
// line is still dispatched, then the session is terminated.
func (in *Interpreter) EndOfStream(s *session.Session, reason string) {
	if rest, ok := s.Flush(); ok {
		if in.Dispatch(s, rest) {
			return
		}
	}
	in.hub.Terminate(s, reason)
}

func (in *Interpreter) execute(s *session.Session, cmd Command) (bool, error) {
	switch cmd.Verb {
	case VerbNick:
		previous, err := in.hub.Register(s, cmd.Arg)
		if err != nil {
			return false, err
		}
		in.out.Reply(s, ReplyOK)
		in.hub.AnnounceRename(s, previous)

	case VerbJoin:
		if err := in.hub.JoinRoom(s, cmd.Arg); err != nil {
			return false, err
		}
		in.out.Reply(s, ReplyOK)
		in.hub.AnnounceJoin(s)

	case VerbLeave:
		if err := in.hub.LeaveRoom(s); err != nil {
			return false, err
		}
		in.out.Reply(s, ReplyOK)

	case VerbBye:
		if s.Phase() == session.InRoom {
			if err := in.hub.LeaveRoom(s); err != nil {
				s.Logger.Warn("leave on bye: %v", err)
			}
		}
		in.out.Reply(s, ReplyBye)
		in.hub.Terminate(s, "bye")
		return true, nil

	case VerbPriv:
		if s.Phase() == session.Unregistered {
			return false, cerrors.ErrNotRegistered
		}
		target, ok := in.hub.Registry().Lookup(cmd.Arg)
		if !ok {
			return false, cerrors.ErrUnknownTarget
		}
		in.out.Reply(target, "PRIVATE "+s.Nick()+" "+cmd.Text)
		in.out.Reply(s, ReplyOK)

	case VerbMessage:
		if s.Phase() != session.InRoom {
			return false, cerrors.ErrNotInRoom
		}
		in.out.Broadcast(s, "MESSAGE "+s.Nick()+" "+cmd.Text)

	default:
		return false, fmt.Errorf("unhandled verb %v", cmd.Verb)
	}
	return false, nil
}

func (in *Interpreter) fail(s *session.Session, err error) {
	if cerrors.IsProtocol(err) {
		in.metrics.ProtocolError()
		s.Logger.Verbose("rejected: %v", err)
	} else {
		s.Logger.Error("command failed: %v", err)
	}
	in.out.Reply(s, ReplyError)
}
