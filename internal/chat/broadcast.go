package chat

import (
	cerrors "tcpchat/internal/errors"
	"tcpchat/internal/metrics"
	"tcpchat/internal/session"
	"tcpchat/util"
)

// Broadcaster delivers protocol lines.  Delivery is best effort: a
// recipient whose transport refuses the line is logged and counted,
// and the remaining recipients are still served.
type Broadcaster struct {
	reg     Registry
	logger  *util.Logger
	metrics *metrics.Collector
}

// NewBroadcaster returns a Broadcaster resolving rooms through reg.
func NewBroadcaster(reg Registry, logger *util.Logger, m *metrics.Collector) *Broadcaster {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Broadcaster{reg: reg, logger: logger, metrics: m}
}

// Reply sends line to s alone.
func (b *Broadcaster) Reply(s *session.Session, line string) {
	b.deliver(s, line)
}

// Broadcast sends line to every member of the sender's room, sender
// included.  It does nothing if s is not in a room.
func (b *Broadcaster) Broadcast(s *session.Session, line string) {
	room, ok := b.roomOf(s)
	if !ok {
		return
	}
	for _, m := range room.Members() {
		b.deliver(m, line)
	}
}

// BroadcastToRest sends line to every member of the sender's room
// except the sender.
func (b *Broadcaster) BroadcastToRest(s *session.Session, line string) {
	room, ok := b.roomOf(s)
	if !ok {
		return
	}
	for _, m := range room.Others(s) {
		b.deliver(m, line)
	}
}

func (b *Broadcaster) roomOf(s *session.Session) (*Room, bool) {
	if s.Phase() != session.InRoom {
		return nil, false
	}
	return b.reg.FindRoom(s.Room())
}

func (b *Broadcaster) deliver(to *session.Session, line string) {
	if err := to.Send(line); err != nil {
		b.metrics.DeliveryFailed(err.Error())
		if cerrors.Is(err, cerrors.ErrSessionClosed) {
			// Already reported when the session started closing.
			to.Logger.Verbose("delivery skipped: %v", err)
			return
		}
		to.Logger.Warn("delivery failed: %v", err)
		return
	}
	b.logger.Debug("-> %s: %s", to.Nick(), line)
}
