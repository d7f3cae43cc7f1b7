package chat

import (
	cerrors "tcpchat/internal/errors"
	"tcpchat/internal/metrics"
	"tcpchat/internal/session"
	"tcpchat/util"
)

// Hub implements the session state machine on top of a Registry:
//
//	Unregistered --Register--> Registered --JoinRoom--> InRoom
//	InRoom --JoinRoom--> InRoom,  InRoom --LeaveRoom--> Registered
//	any --Terminate--> gone
//
// Notifications that precede the caller's reply (LEFT) are sent by the
// operations themselves; those that follow it are the Announce methods.
type Hub struct {
	reg     Registry
	out     *Broadcaster
	logger  *util.Logger
	metrics *metrics.Collector
}

// NewHub wires a Hub to its registry and broadcaster.
func NewHub(reg Registry, out *Broadcaster, logger *util.Logger, m *metrics.Collector) *Hub {
	return &Hub{reg: reg, out: out, logger: logger, metrics: m}
}

// Registry returns the registry the hub operates on.
func (h *Hub) Registry() Registry { return h.reg }

// Open indexes a freshly accepted session.
func (h *Hub) Open(s *session.Session) {
	h.reg.Attach(s)
	h.metrics.SessionOpened()
	s.Logger.Info("connection accepted")
}

// Register gives s the nickname nick and returns the previous one.
func (h *Hub) Register(s *session.Session, nick string) (string, error) {
	return h.reg.Claim(s, nick)
}

// AnnounceRename tells room peers that s changed its nickname.  A
// rename to the current name is not announced.
func (h *Hub) AnnounceRename(s *session.Session, previous string) {
	if s.Phase() == session.InRoom && previous != s.Nick() {
		h.out.BroadcastToRest(s, "NEWNICK "+previous+" "+s.Nick())
	}
}

// JoinRoom moves s into the named room, leaving its current room
// first.  The old room hears LEFT before the new one hears JOINED; the
// JOINED notice is sent by Announce so the caller can reply first.
func (h *Hub) JoinRoom(s *session.Session, name string) error {
	if s.Phase() == session.Unregistered {
		return cerrors.ErrNotRegistered
	}
	if s.Phase() == session.InRoom {
		if err := h.LeaveRoom(s); err != nil {
			return err
		}
	}
	h.reg.Room(name).Connect(s)
	s.Enter(name)
	s.Logger.Verbose("joined room %q", name)
	return nil
}

// AnnounceJoin tells the other members of s's room that it arrived.
func (h *Hub) AnnounceJoin(s *session.Session) {
	h.out.BroadcastToRest(s, "JOINED "+s.Nick())
}

// LeaveRoom removes s from its room after telling the other members.
func (h *Hub) LeaveRoom(s *session.Session) error {
	if s.Phase() != session.InRoom {
		return cerrors.ErrNotInRoom
	}
	h.out.BroadcastToRest(s, "LEFT "+s.Nick())

	name := s.Room()
	room, ok := h.reg.FindRoom(name)
	if !ok {
		s.Exit()
		return cerrors.ErrNotMember
	}
	err := room.Disconnect(s)
	s.Exit()
	if err != nil {
		return err
	}
	s.Logger.Verbose("left room %q", name)
	return nil
}

// Terminate tears s down: it leaves its room (peers are told), loses
// its registry entries, and its transport is closed after queued lines
// are flushed.  Terminating a session that is no longer registered is
// a no-op, so the reader reporting a closed stream after /bye is
// harmless.
func (h *Hub) Terminate(s *session.Session, reason string) {
	if _, live := h.reg.Session(s.ID); !live {
		return
	}
	if s.Phase() == session.InRoom {
		if err := h.LeaveRoom(s); err != nil {
			s.Logger.Warn("leave on terminate: %v", err)
		}
	}
	h.reg.Detach(s)
	h.metrics.SessionClosed()

	if err := s.Close(); err != nil {
		s.Logger.Warn("close: %v", err)
	}
	s.Logger.Info("connection closed (%s)", reason)
}

// Shutdown closes every live session without notifying room peers,
// who are going away too.  Queued lines are still flushed.
func (h *Hub) Shutdown(reason string) {
	for _, s := range h.reg.Sessions() {
		if s.Phase() == session.InRoom {
			if room, ok := h.reg.FindRoom(s.Room()); ok {
				if err := room.Disconnect(s); err != nil {
					s.Logger.Warn("leave %q on shutdown: %v", s.Room(), err)
				}
			}
			s.Exit()
		}
		h.Terminate(s, reason)
	}
}
