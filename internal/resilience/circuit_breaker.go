// Package resilience guards a flaky source with a circuit breaker.
package resilience

import (
	"sync"
	"time"
)

// Circuit breaker state constants.
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half_open"
)

// CircuitBreakerConfig configures the circuit breaker pattern.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	// Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes in half-open
	// state before closing the circuit.
	// Default: 2
	SuccessThreshold int

	// OpenTimeout is how long to wait before transitioning from open to half-open.
	// Default: 5 seconds
	OpenTimeout time.Duration

	// HalfOpenMaxRequests is the max concurrent requests allowed in half-open state.
	// Zero means no limit.
	HalfOpenMaxRequests int

	// OnStateChange is called, outside the lock, whenever the circuit moves
	// between states.
	OnStateChange func(from, to string)
}

// CircuitBreaker stops calling a source that keeps failing, then lets a few
// probe requests through once OpenTimeout has passed.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu               sync.Mutex
	state            string
	failures         int
	successes        int
	halfOpenAttempts int
	openedAt         time.Time
}

// NewCircuitBreaker creates a new circuit breaker with the given config.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults for zero values
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 5 * time.Second
	}

	return &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  CircuitClosed,
	}
}

// Allow reports whether a request may proceed. In half-open state it
// reserves an attempt slot that RecordSuccess or RecordFailure releases.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	from := cb.state
	allowed := cb.allowLocked()
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
	return allowed
}

func (cb *CircuitBreaker) allowLocked() bool {
	switch cb.state {
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.OpenTimeout {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.successes = 0
		cb.failures = 0
		cb.halfOpenAttempts = 1
		return true

	case CircuitHalfOpen:
		if cb.config.HalfOpenMaxRequests > 0 && cb.halfOpenAttempts >= cb.config.HalfOpenMaxRequests {
			return false
		}
		cb.halfOpenAttempts++
		return true
	}
	return true
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	from := cb.state
	switch cb.state {
	case CircuitHalfOpen:
		// Release the reserved slot
		if cb.halfOpenAttempts > 0 {
			cb.halfOpenAttempts--
		}
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = CircuitClosed
			cb.failures = 0
			cb.successes = 0
			cb.halfOpenAttempts = 0
		}
	case CircuitClosed:
		// Reset consecutive failure count on success
		cb.failures = 0
	}
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	from := cb.state
	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = CircuitOpen
			cb.openedAt = cb.now()
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
		cb.successes = 0
		cb.halfOpenAttempts = 0
	}
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
}

// Release gives back a half-open slot for a request that ended without a
// verdict, such as one cancelled by its caller.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitHalfOpen && cb.halfOpenAttempts > 0 {
		cb.halfOpenAttempts--
	}
}

// State returns the current circuit breaker state. An open circuit whose
// timeout has passed reports half-open.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.now().Sub(cb.openedAt) >= cb.config.OpenTimeout {
		return CircuitHalfOpen
	}
	return cb.state
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = CircuitClosed
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenAttempts = 0
	cb.mu.Unlock()

	cb.notify(from, CircuitClosed)
}

func (cb *CircuitBreaker) notify(from, to string) {
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}
