package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(cfg)
	cb.now = c.now
	return cb, c
}

func TestCircuitBreakerDefaultsClosed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow(), "closed circuit allows requests")
	assert.Equal(t, 5, cb.config.FailureThreshold)
	assert.Equal(t, 2, cb.config.SuccessThreshold)
	assert.Equal(t, 5*time.Second, cb.config.OpenTimeout)
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3, OpenTimeout: 30 * time.Second})

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow(), "open circuit rejects requests")
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreakerHalfOpenAfterTimeout(t *testing.T) {
	cb, c := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: 10 * time.Second, HalfOpenMaxRequests: 1})

	cb.RecordFailure()
	c.advance(5 * time.Second)
	assert.False(t, cb.Allow())

	c.advance(5 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.True(t, cb.Allow(), "first probe is let through")
	assert.False(t, cb.Allow(), "second probe waits for the first")

	cb.Release()
	assert.True(t, cb.Allow(), "released slot can be reused")
}

func TestCircuitBreakerClosesAfterSuccesses(t *testing.T) {
	cb, c := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: time.Second})

	cb.RecordFailure()
	c.advance(time.Second)
	assert.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State())

	assert.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb, c := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second})

	cb.RecordFailure()
	c.advance(time.Second)
	assert.True(t, cb.Allow())
	cb.RecordFailure()

	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreakerReset(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreakerOnStateChange(t *testing.T) {
	var transitions []string
	cb, c := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      time.Second,
		OnStateChange: func(from, to string) {
			transitions = append(transitions, from+"->"+to)
		},
	})

	cb.RecordFailure()
	c.advance(time.Second)
	cb.Allow()
	cb.RecordSuccess()
	cb.RecordSuccess()

	assert.Equal(t, []string{
		"closed->open",
		"open->half_open",
		"half_open->closed",
	}, transitions)
}
