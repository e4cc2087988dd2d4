package httpclient

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker tracks consecutive transport failures for one host.
// A threshold of zero or less never opens.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           CircuitState
	failures        int
	threshold       int
	resetTimeout    time.Duration
	lastFailureTime time.Time
	trialInFlight   bool
	now             func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:        CircuitClosed,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// Allow returns true if the request should be allowed to proceed.
// After the reset timeout an open breaker admits exactly one trial request.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.resetTimeout {
			cb.state = CircuitHalfOpen
			cb.trialInFlight = true
			return true
		}
		return false
	case CircuitHalfOpen:
		if cb.trialInFlight {
			return false
		}
		cb.trialInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess closes the breaker and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.trialInFlight = false
}

// RecordFailure counts a transport failure.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.now()
	cb.trialInFlight = false

	switch cb.state {
	case CircuitClosed:
		if cb.threshold > 0 && cb.failures >= cb.threshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset returns the breaker to the closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.trialInFlight = false
}

// BreakerSet lazily creates one breaker per host.
type BreakerSet struct {
	mu           sync.Mutex
	threshold    int
	resetTimeout time.Duration
	breakers     map[string]*CircuitBreaker
}

// NewBreakerSet creates an empty set whose breakers share the given settings.
func NewBreakerSet(threshold int, resetTimeout time.Duration) *BreakerSet {
	return &BreakerSet{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		breakers:     make(map[string]*CircuitBreaker),
	}
}

// For returns the breaker for host, creating it on first use.
func (s *BreakerSet) For(host string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.breakers[host]
	if !ok {
		cb = NewCircuitBreaker(s.threshold, s.resetTimeout)
		s.breakers[host] = cb
	}
	return cb
}

// Reset closes every breaker in the set.
func (s *BreakerSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cb := range s.breakers {
		cb.Reset()
	}
}
