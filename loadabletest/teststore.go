// Package loadabletest drives reducers step by step in tests.
//
// A TestStore reduces each sent action, checks the resulting state against
// the caller's expectation, and runs effect operations in the background.
// Actions those operations (or immediate Send effects) produce must be
// consumed with Receive, in order, before the test ends.
package loadabletest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basecamp/loadable/loadable"
	"github.com/basecamp/loadable/reducer"
)

// DefaultTimeout bounds how long Receive and Finish wait for effects.
const DefaultTimeout = time.Second

// Option configures a TestStore.
type Option func(*config)

type config struct {
	timeout    time.Duration
	exhaustive bool
	logger     zerolog.Logger
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// NonExhaustive stops Finish from failing on unreceived actions.
func NonExhaustive() Option {
	return func(c *config) { c.exhaustive = false }
}

// WithLogger passes a logger to the effect executor.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// TestStore is a Store for tests. It is not safe for concurrent use by
// multiple test goroutines.
type TestStore[S, A any] struct {
	t       testing.TB
	cfg     config
	state   S
	reducer reducer.Reducer[S, A]
	exec    *reducer.Executor[A]

	// queue holds actions produced but not yet received.
	queue []A

	mu         sync.Mutex
	deliveries []reducer.Delivery[A]
	notify     chan struct{}
	wg         sync.WaitGroup
	finished   bool
}

// New creates a TestStore. Finish runs automatically when the test ends.
func New[S, A any](t testing.TB, initial S, r reducer.Reducer[S, A], opts ...Option) *TestStore[S, A] {
	t.Helper()
	cfg := config{timeout: DefaultTimeout, exhaustive: true, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ts := &TestStore[S, A]{
		t:       t,
		cfg:     cfg,
		state:   initial,
		reducer: r,
		exec:    reducer.NewExecutor[A](ctx, cfg.logger),
		notify:  make(chan struct{}, 1),
	}
	t.Cleanup(func() {
		ts.Finish()
		cancel()
	})
	return ts
}

// State returns the current state.
func (ts *TestStore[S, A]) State() S {
	return ts.state
}

// Send reduces action. expect receives a copy of the state from before the
// action and must mutate it into the state the action should produce; nil
// means the action must not change state. Actions still waiting to be
// received fail the test.
func (ts *TestStore[S, A]) Send(action A, expect func(*S)) {
	ts.t.Helper()
	ts.collect()
	if len(ts.queue) > 0 {
		require.Failf(ts.t, "Unreceived actions",
			"Must handle %d received action(s) before sending %s. Next: %s",
			len(ts.queue), describe(action), describe(ts.queue[0]))
	}
	ts.reduce(action, expect)
}

// Receive waits for the next action produced by an effect, checks it
// equals expected, then reduces it like Send.
func (ts *TestStore[S, A]) Receive(expected A, expect func(*S)) {
	ts.t.Helper()
	action, ok := ts.next()
	if !ok {
		require.Failf(ts.t, "Timed out",
			"Expected to receive %s, but no action arrived within %s", describe(expected), ts.cfg.timeout)
	}
	if !actionsEqual(expected, action) {
		require.Failf(ts.t, "Received unexpected action",
			"expected: %s\nactual:   %s", describe(expected), describe(action))
	}
	ts.reduce(action, expect)
}

// ReceiveMatching is Receive with a predicate instead of an expected
// action, for actions that carry values a test cannot construct, such as
// wrapped errors.
func (ts *TestStore[S, A]) ReceiveMatching(match func(A) bool, expect func(*S)) {
	ts.t.Helper()
	action, ok := ts.next()
	if !ok {
		require.Failf(ts.t, "Timed out", "No action arrived within %s", ts.cfg.timeout)
	}
	if !match(action) {
		require.Failf(ts.t, "Received unexpected action", "actual: %s", describe(action))
	}
	ts.reduce(action, expect)
}

// SkipReceived drops every action received so far without reducing it.
func (ts *TestStore[S, A]) SkipReceived() {
	ts.collect()
	ts.queue = nil
}

// Finish waits for running effects and fails the test if any of their
// actions were not received. It is idempotent.
func (ts *TestStore[S, A]) Finish() {
	ts.t.Helper()
	if ts.finished {
		return
	}
	ts.finished = true
	defer ts.exec.Close()

	done := make(chan struct{})
	go func() {
		ts.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(ts.cfg.timeout):
		if ts.cfg.exhaustive {
			assert.Failf(ts.t, "Effects still running",
				"%d effect(s) did not finish within %s", ts.exec.InFlight(), ts.cfg.timeout)
		}
	}

	ts.collect()
	if ts.cfg.exhaustive && len(ts.queue) > 0 {
		names := make([]string, len(ts.queue))
		for i, a := range ts.queue {
			names[i] = describe(a)
		}
		assert.Failf(ts.t, "Unreceived actions", "%d action(s) were never received: %v", len(names), names)
	}
}

func (ts *TestStore[S, A]) reduce(action A, expect func(*S)) {
	ts.t.Helper()
	expected := ts.state
	if expect != nil {
		expect(&expected)
	}

	effect := ts.reducer.Reduce(&ts.state, action)
	if !statesEqual(expected, ts.state) {
		require.Failf(ts.t, "State mismatch",
			"after %s\nexpected: %+v\nactual:   %+v", describe(action), expected, ts.state)
	}

	immediate, jobs := ts.exec.Apply(effect)
	ts.queue = append(ts.queue, immediate...)
	for _, job := range jobs {
		ts.run(job)
	}
}

func (ts *TestStore[S, A]) run(job reducer.Job[A]) {
	ts.wg.Add(1)
	go func() {
		defer ts.wg.Done()
		d := job.Run()
		ts.mu.Lock()
		ts.deliveries = append(ts.deliveries, d)
		ts.mu.Unlock()
		select {
		case ts.notify <- struct{}{}:
		default:
		}
	}()
}

// collect moves delivered actions into the queue, dropping those from
// cancelled operations.
func (ts *TestStore[S, A]) collect() {
	ts.mu.Lock()
	deliveries := ts.deliveries
	ts.deliveries = nil
	ts.mu.Unlock()
	for _, d := range deliveries {
		if ts.exec.Accept(d) {
			ts.queue = append(ts.queue, d.Actions...)
		}
	}
}

func (ts *TestStore[S, A]) next() (A, bool) {
	deadline := time.NewTimer(ts.cfg.timeout)
	defer deadline.Stop()
	for {
		ts.collect()
		if len(ts.queue) > 0 {
			a := ts.queue[0]
			ts.queue = ts.queue[1:]
			return a, true
		}
		select {
		case <-ts.notify:
		case <-deadline.C:
			var zero A
			return zero, false
		}
	}
}

func statesEqual[S any](a, b S) bool {
	if eq, ok := any(a).(interface{ Equal(S) bool }); ok {
		return eq.Equal(b)
	}
	return assert.ObjectsAreEqual(a, b)
}

func actionsEqual[A any](a, b A) bool {
	if _, ok := any(a).(interface{ Equal(A) bool }); ok {
		return loadable.Equal(a, b)
	}
	return assert.ObjectsAreEqual(a, b)
}

func describe(a any) string {
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T%+v", a, a)
}
