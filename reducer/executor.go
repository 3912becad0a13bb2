package reducer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// handle tracks one scheduled operation.
type handle struct {
	id        ID
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// Delivery holds the actions an operation sent before it returned.
type Delivery[A any] struct {
	Actions []A
	h       *handle
}

// Current reports whether the operation that produced the delivery was
// still live when it finished and has not been cancelled since. Actions
// from a cancelled operation must not be reduced.
func (d Delivery[A]) Current() bool {
	return d.h == nil || !d.h.cancelled.Load()
}

// Job is an operation that has been scheduled but not yet run. Run blocks
// until the operation (and its catch handler) return.
type Job[A any] struct {
	run func() Delivery[A]
}

// Run executes the job.
func (j Job[A]) Run() Delivery[A] { return j.run() }

// Executor schedules effect operations and tracks them by cancellation ID.
// A Store owns one; test harnesses can drive one directly.
type Executor[A any] struct {
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	inflight map[ID]map[*handle]struct{}
	logger   zerolog.Logger
}

// NewExecutor creates an executor whose operations derive their contexts
// from ctx. Cancelling ctx (or calling Close) cancels everything.
func NewExecutor[A any](ctx context.Context, logger zerolog.Logger) *Executor[A] { //nolint:revive // context-as-argument: mirrors NewStore
	ctx, cancel := context.WithCancel(ctx)
	return &Executor[A]{
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[ID]map[*handle]struct{}),
		logger:   logger,
	}
}

// Apply performs the effect's cancellations, then schedules its
// operations. Immediate actions are returned in order for the caller to
// reduce next.
func (x *Executor[A]) Apply(e Effect[A]) (immediate []A, jobs []Job[A]) {
	for _, id := range e.cancels {
		x.CancelID(id)
	}
	for _, t := range e.tasks {
		if t.immediate {
			immediate = append(immediate, t.action)
			continue
		}
		if t.run == nil {
			continue
		}
		if t.cancelInFlight && t.id != "" {
			x.CancelID(t.id)
		}
		jobs = append(jobs, x.schedule(t))
	}
	return immediate, jobs
}

func (x *Executor[A]) schedule(t task[A]) Job[A] {
	ctx, cancel := context.WithCancel(x.ctx)
	h := &handle{id: t.id, cancel: cancel}

	x.mu.Lock()
	set, ok := x.inflight[h.id]
	if !ok {
		set = make(map[*handle]struct{})
		x.inflight[h.id] = set
	}
	set[h] = struct{}{}
	x.mu.Unlock()

	return Job[A]{run: func() Delivery[A] {
		defer h.cancel()

		var (
			mu      sync.Mutex
			actions []A
		)
		send := func(a A) {
			mu.Lock()
			defer mu.Unlock()
			actions = append(actions, a)
		}

		if err := x.invoke(ctx, t.run, send); err != nil && t.catch != nil {
			t.catch(err, send)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(actions) == 0 {
			x.forget(h)
		}
		return Delivery[A]{Actions: actions, h: h}
	}}
}

func (x *Executor[A]) invoke(ctx context.Context, op Operation[A], send SendFunc[A]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error().Interface("panic", r).Msg("Effect operation panicked")
			err = fmt.Errorf("effect operation panicked: %v", r)
		}
	}()
	return op(ctx, send)
}

// Accept claims a delivery for reduction. It reports false when the
// operation was cancelled, including after it returned but before its
// actions were reduced. Callers must serialize Accept with the reductions
// that may cancel it.
func (x *Executor[A]) Accept(d Delivery[A]) bool {
	if d.h == nil {
		return true
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if d.h.cancelled.Load() {
		return false
	}
	x.remove(d.h)
	return true
}

func (x *Executor[A]) forget(h *handle) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.remove(h)
}

func (x *Executor[A]) remove(h *handle) {
	if set, ok := x.inflight[h.id]; ok {
		delete(set, h)
		if len(set) == 0 {
			delete(x.inflight, h.id)
		}
	}
}

// CancelID cancels every in-flight operation tagged with id.
func (x *Executor[A]) CancelID(id ID) {
	x.mu.Lock()
	set := x.inflight[id]
	delete(x.inflight, id)
	for h := range set {
		h.cancelled.Store(true)
	}
	x.mu.Unlock()

	for h := range set {
		h.cancel()
	}
	if len(set) > 0 {
		x.logger.Debug().Str("id", string(id)).Int("operations", len(set)).Msg("Cancelled in-flight effects")
	}
}

// InFlight returns how many scheduled operations have not finished or
// still have actions waiting to be accepted.
func (x *Executor[A]) InFlight() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := 0
	for _, set := range x.inflight {
		n += len(set)
	}
	return n
}

// Close cancels every in-flight operation. The executor should not be
// reused afterwards.
func (x *Executor[A]) Close() {
	x.mu.Lock()
	for _, set := range x.inflight {
		for h := range set {
			h.cancelled.Store(true)
		}
	}
	x.inflight = make(map[ID]map[*handle]struct{})
	x.mu.Unlock()

	x.cancel()
}
