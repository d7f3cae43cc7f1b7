// Package limiter throttles new connections per remote IP with a token
// bucket, so one misbehaving host cannot flood the accept loop.
package limiter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	cerrors "tcpchat/internal/errors"
	"tcpchat/util"
)

// DefaultSweepInterval is how often idle buckets are dropped.
const DefaultSweepInterval = 3 * time.Minute

// IPLimiter hands out one rate.Limiter per remote IP.
//
// A nil *IPLimiter allows everything, which is how throttling is
// switched off.
type IPLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	r      rate.Limit
	b      int
}

// New returns a limiter admitting perSecond connections per IP with
// bursts of up to burst.  perSecond <= 0 disables throttling and
// returns nil.
func New(perSecond float64, burst int) *IPLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &IPLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      rate.Limit(perSecond),
		b:      burst,
	}
}

// Admit consumes a token for a new connection from addr.  It returns an
// error wrapping ErrThrottled when the host's bucket is empty.
func (l *IPLimiter) Admit(addr net.Addr) error {
	if l == nil {
		return nil
	}
	return l.AdmitHost(util.HostOf(addr))
}

// AdmitHost is Admit keyed by an already extracted host.
func (l *IPLimiter) AdmitHost(host string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	lim, ok := l.limits[host]
	if !ok {
		lim = rate.NewLimiter(l.r, l.b)
		l.limits[host] = lim
	}
	l.mu.Unlock()

	if !lim.Allow() {
		return fmt.Errorf("%w: %s", cerrors.ErrThrottled, host)
	}
	return nil
}

// Tracked returns the number of hosts with a live bucket.
func (l *IPLimiter) Tracked() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limits)
}

// Sweep drops the buckets of hosts that have been quiet long enough
// for their bucket to refill, returning how many were removed.
func (l *IPLimiter) Sweep(now time.Time) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for host, lim := range l.limits {
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(l.limits, host)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (l *IPLimiter) Run(ctx context.Context, interval time.Duration) {
	if l == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}
