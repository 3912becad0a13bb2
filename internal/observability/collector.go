// Package observability provides metrics collection and tracing for loads.
package observability

import (
	"sync"
	"time"

	"github.com/basecamp/loadable/loadable"
)

// LoadMetrics holds timing and outcome for a single load.
type LoadMetrics struct {
	Slot      string
	Request   any
	Refreshed bool
	Duration  time.Duration
	Error     error
}

// FetchMetrics holds timing for one fetch from a data source.
type FetchMetrics struct {
	Cursor   string
	Count    int
	Duration time.Duration
	Error    error
}

// SessionMetrics aggregates metrics for an entire CLI session.
type SessionMetrics struct {
	StartTime    time.Time
	EndTime      time.Time
	TotalLoads   int
	Refreshes    int
	FailedLoads  int
	Cancels      int
	TotalFetches int
	TotalLatency time.Duration
}

// SessionCollector accumulates metrics across a CLI session.
// It is safe for concurrent use and uses counters instead of unbounded slices.
type SessionCollector struct {
	mu sync.Mutex

	startTime    time.Time
	totalLoads   int
	refreshes    int
	failedLoads  int
	cancels      int
	totalFetches int
	totalLatency time.Duration
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{
		startTime: time.Now(),
	}
}

// RecordLoad records metrics for a completed load.
func (c *SessionCollector) RecordLoad(m LoadMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalLoads++
	c.totalLatency += m.Duration
	if m.Refreshed {
		c.refreshes++
	}
	if m.Error != nil {
		c.failedLoads++
	}
}

// RecordLoadEnd records a load reported through loadable hooks.
func (c *SessionCollector) RecordLoadEnd(info loadable.LoadInfo, err error, duration time.Duration) {
	c.RecordLoad(LoadMetrics{
		Slot:      info.Slot,
		Request:   info.Request,
		Refreshed: info.Refreshed,
		Duration:  duration,
		Error:     err,
	})
}

// RecordCancel records a cancelled load.
func (c *SessionCollector) RecordCancel(_ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels++
}

// RecordFetch records a fetch from a data source.
func (c *SessionCollector) RecordFetch(_ FetchMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalFetches++
}

// Summary returns aggregated metrics for the session.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionMetrics{
		StartTime:    c.startTime,
		EndTime:      time.Now(),
		TotalLoads:   c.totalLoads,
		Refreshes:    c.refreshes,
		FailedLoads:  c.failedLoads,
		Cancels:      c.cancels,
		TotalFetches: c.totalFetches,
		TotalLatency: c.totalLatency,
	}
}

// Reset clears all collected metrics and resets the start time.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.totalLoads = 0
	c.refreshes = 0
	c.failedLoads = 0
	c.cancels = 0
	c.totalFetches = 0
	c.totalLatency = 0
}
