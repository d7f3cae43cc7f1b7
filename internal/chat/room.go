package chat

import (
	"github.com/samber/lo"

	cerrors "tcpchat/internal/errors"
	"tcpchat/internal/session"
)

// Room is a named, ordered set of sessions.  Rooms are created on the
// first join and live for the lifetime of the process.
type Room struct {
	Name    string
	members []*session.Session
}

func newRoom(name string) *Room {
	return &Room{Name: name}
}

// Connect appends s to the membership.  Connecting a member twice is a
// no-op.
func (r *Room) Connect(s *session.Session) {
	if r.Has(s) {
		return
	}
	r.members = append(r.members, s)
}

// Disconnect removes s, reporting ErrNotMember if it was not there.
func (r *Room) Disconnect(s *session.Session) error {
	if !r.Has(s) {
		return cerrors.ErrNotMember
	}
	r.members = lo.Without(r.members, s)
	return nil
}

// Has reports whether s is a member.
func (r *Room) Has(s *session.Session) bool {
	return lo.Contains(r.members, s)
}

// Members returns a snapshot of the membership in join order.
func (r *Room) Members() []*session.Session {
	return append([]*session.Session(nil), r.members...)
}

// Others returns every member except s, in join order.
func (r *Room) Others(s *session.Session) []*session.Session {
	return lo.Without(r.members, s)
}

// Len returns the member count.
func (r *Room) Len() int { return len(r.members) }

// Nicks returns the members' nicknames in join order.
func (r *Room) Nicks() []string {
	return lo.Map(r.members, func(s *session.Session, _ int) string { return s.Nick() })
}
