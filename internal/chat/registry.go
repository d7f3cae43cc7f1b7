// Package chat implements the chat protocol: the session and room
// registries, the command interpreter and the fan-out of protocol
// lines to room members.
//
// Nothing in this package locks.  Every call is made from the event
// loop goroutine that owns all sessions and rooms.
package chat

import (
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	cerrors "tcpchat/internal/errors"
	"tcpchat/internal/metrics"
	"tcpchat/internal/session"
)

// Registry indexes live sessions by connection and by nickname and
// owns the rooms.  The interpreter and the event loop receive it as a
// dependency so tests can substitute their own.
type Registry interface {
	// Attach indexes a freshly accepted session.
	Attach(s *session.Session)
	// Detach removes every index entry for s.
	Detach(s *session.Session)
	// Session returns the live session with the given id.
	Session(id uuid.UUID) (*session.Session, bool)
	// Lookup resolves a nickname.
	Lookup(nick string) (*session.Session, bool)
	// Claim gives nick to s, releasing its previous nickname, and
	// returns the previous one.  ErrNameTaken if another session
	// holds nick.
	Claim(s *session.Session, nick string) (previous string, err error)
	// Room returns the named room, creating it on first use.
	Room(name string) *Room
	// FindRoom returns the named room if it exists.
	FindRoom(name string) (*Room, bool)
	// Sessions returns every live session.
	Sessions() []*session.Session
	// RoomNames returns the names of every room, sorted.
	RoomNames() []string
}

// Memory is the in-process Registry.
type Memory struct {
	byID    map[uuid.UUID]*session.Session
	byNick  map[string]*session.Session
	rooms   map[string]*Room
	metrics *metrics.Collector
}

// NewMemory returns an empty registry.  m may be nil.
func NewMemory(m *metrics.Collector) *Memory {
	return &Memory{
		byID:    make(map[uuid.UUID]*session.Session),
		byNick:  make(map[string]*session.Session),
		rooms:   make(map[string]*Room),
		metrics: m,
	}
}

func (r *Memory) Attach(s *session.Session) {
	r.byID[s.ID] = s
}

func (r *Memory) Detach(s *session.Session) {
	delete(r.byID, s.ID)
	if nick := s.Nick(); nick != "" && r.byNick[nick] == s {
		delete(r.byNick, nick)
	}
}

func (r *Memory) Session(id uuid.UUID) (*session.Session, bool) {
	s, ok := r.byID[id]
	return s, ok
}

func (r *Memory) Lookup(nick string) (*session.Session, bool) {
	s, ok := r.byNick[nick]
	return s, ok
}

func (r *Memory) Claim(s *session.Session, nick string) (string, error) {
	if holder, ok := r.byNick[nick]; ok && holder != s {
		return "", cerrors.ErrNameTaken
	}
	if old := s.Nick(); old != "" && r.byNick[old] == s {
		delete(r.byNick, old)
	}
	r.byNick[nick] = s
	return s.Rename(nick), nil
}

func (r *Memory) Room(name string) *Room {
	room, ok := r.rooms[name]
	if !ok {
		room = newRoom(name)
		r.rooms[name] = room
		r.metrics.RoomCreated()
	}
	return room
}

func (r *Memory) FindRoom(name string) (*Room, bool) {
	room, ok := r.rooms[name]
	return room, ok
}

func (r *Memory) Sessions() []*session.Session {
	return lo.Values(r.byID)
}

func (r *Memory) RoomNames() []string {
	names := lo.Keys(r.rooms)
	sort.Strings(names)
	return names
}
