package retry

import "sync"

// State represents the breaker's operational state.
type State int

const (
	// StateClosed is normal operation.
	StateClosed State = iota
	// StateOpen means the guarded operation keeps failing.
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Breaker counts consecutive failures of one operation.  The accept
// loop records every accept result; once maxFailures errors arrive in a
// row without a success in between the breaker opens and the listener
// is treated as dead.  An open breaker stays open until Success.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	onChange    func(from, to State)
}

// NewBreaker returns a closed breaker.  onChange, if non-nil, is called
// on every state transition with the breaker's lock held.
func NewBreaker(maxFailures int, onChange func(from, to State)) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &Breaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		onChange:    onChange,
	}
}

// Success resets the failure streak and closes the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.transition(StateClosed)
}

// Failure extends the failure streak and reports whether the breaker
// is now open.
func (b *Breaker) Failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures >= b.maxFailures {
		b.transition(StateOpen)
	}
	return b.state == StateOpen
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onChange != nil {
		b.onChange(from, to)
	}
}
