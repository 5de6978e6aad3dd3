package gateway

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when calls are being short-circuited.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker shields the model provider: maxFails consecutive errors trip
// it open, and until the cooloff deadline passes every call fails fast with
// ErrCircuitOpen instead of queueing behind a dead backend. The first call
// after the deadline runs as a half-open trial; its outcome decides whether
// the circuit closes again or the deadline is pushed out.
type CircuitBreaker struct {
	maxFails int
	cooloff  time.Duration

	mu       sync.Mutex
	fails    int
	state    breakerState
	reopenAt time.Time

	now func() time.Time
}

func NewCircuitBreaker(maxFails int, cooloff time.Duration) *CircuitBreaker {
	if maxFails <= 0 {
		maxFails = 3
	}
	if cooloff <= 0 {
		cooloff = 30 * time.Second
	}
	return &CircuitBreaker{
		maxFails: maxFails,
		cooloff:  cooloff,
		now:      time.Now,
	}
}

// Call runs fn unless the circuit is open, and feeds the outcome back into
// the breaker.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// State reports the current state, for health endpoints and logs.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.String()
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == stateOpen {
		if cb.now().Before(cb.reopenAt) {
			return ErrCircuitOpen
		}
		cb.state = stateHalfOpen
	}
	return nil
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.fails++
	// A failed half-open trial reopens immediately, whatever the count.
	if cb.state == stateHalfOpen || cb.fails >= cb.maxFails {
		cb.state = stateOpen
		cb.reopenAt = cb.now().Add(cb.cooloff)
		cb.fails = 0
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.fails = 0
	cb.state = stateClosed
}
