package loadable

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/basecamp/loadable/reducer"
)

// LoadFunc loads the value for request. parent is a copy of the parent
// state taken when the load action was dispatched, before the slot became
// active. The copy is shallow: reference types inside it are shared with
// the live state and must not be mutated. ctx is cancelled when the load
// is cancelled or superseded.
type LoadFunc[R comparable, S, V any] func(ctx context.Context, request R, parent S) (V, error)

// Slot locates a loadable slot inside a parent feature.
type Slot[S, A any, R comparable, V, C any] struct {
	// Name identifies the slot in logs and hooks. Defaults to "loadable".
	Name string

	// State returns the slot inside the parent state.
	State func(*S) *State[R, V]

	// Embed wraps a slot action in the parent action type; Extract is its
	// inverse and reports false for parent actions that are not slot
	// actions.
	Embed   func(Action[R, V, C]) A
	Extract func(A) (Action[R, V, C], bool)

	// Child reduces Loaded actions against the loaded value. Optional.
	Child reducer.Reducer[V, C]
}

// Option configures Integrate.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	hooks  Hooks
	guard  bool
}

// WithLogger sets the logger for load lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHooks observes loads started by the slot.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		if h != nil {
			o.hooks = h
		}
	}
}

// WithRequestGuard controls whether a Finished action is ignored when the
// slot is active for a different request. On by default.
func WithRequestGuard(enabled bool) Option {
	return func(o *options) {
		o.guard = enabled
	}
}

type loadingReducer[S, A any, R comparable, V, C any] struct {
	parent reducer.Reducer[S, A]
	slot   Slot[S, A, R, V, C]
	load   LoadFunc[R, S, V]
	id     reducer.ID
	opts   options
}

// Integrate returns a reducer that drives the slot in response to its
// actions and then runs parent for every action.
//
// Load and Refresh make the slot active and start the loader, cancelling
// a load already in flight for the slot. When the loader returns, Finished
// is sent with its result. Cancel rolls the slot back and cancels the
// load. Loaded actions are reduced by the child reducer against the loaded
// value. Each call to Integrate gets its own cancellation identity, so
// slots never cancel each other's loads.
func Integrate[S, A any, R comparable, V, C any](parent reducer.Reducer[S, A], slot Slot[S, A, R, V, C], load LoadFunc[R, S, V], opts ...Option) reducer.Reducer[S, A] {
	o := options{logger: zerolog.Nop(), hooks: NopHooks{}, guard: true}
	for _, opt := range opts {
		opt(&o)
	}
	if slot.Name == "" {
		slot.Name = "loadable"
	}
	if slot.State == nil || slot.Embed == nil || slot.Extract == nil || load == nil {
		panic("loadable: Integrate requires State, Embed, Extract and a load function")
	}
	o.logger = o.logger.With().Str("slot", slot.Name).Logger()
	return &loadingReducer[S, A, R, V, C]{
		parent: parent,
		slot:   slot,
		load:   load,
		id:     reducer.NewID(),
		opts:   o,
	}
}

// IntegrateEmpty is Integrate for slots that load without a request.
func IntegrateEmpty[S, A any, V, C any](parent reducer.Reducer[S, A], slot Slot[S, A, EmptyRequest, V, C], load func(ctx context.Context, parent S) (V, error), opts ...Option) reducer.Reducer[S, A] {
	return Integrate(parent, slot, func(ctx context.Context, _ EmptyRequest, s S) (V, error) {
		return load(ctx, s)
	}, opts...)
}

func (r *loadingReducer[S, A, R, V, C]) Reduce(state *S, action A) reducer.Effect[A] {
	snapshot := *state

	var effects []reducer.Effect[A]
	if la, ok := r.slot.Extract(action); ok {
		effects = append(effects, r.reduceSlot(state, snapshot, la))
	}
	if r.parent != nil {
		effects = append(effects, r.parent.Reduce(state, action))
	}
	return reducer.Merge(effects...)
}

func (r *loadingReducer[S, A, R, V, C]) reduceSlot(state *S, snapshot S, action Action[R, V, C]) reducer.Effect[A] {
	slot := r.slot.State(state)

	switch action.Kind {
	case ActionLoad:
		return r.start(slot, snapshot, action.Request, false)

	case ActionRefresh:
		request, ok := slot.Request()
		if !ok {
			r.opts.logger.Debug().Msg("Refresh ignored, slot has no request")
			return reducer.None[A]()
		}
		return r.start(slot, snapshot, request, true)

	case ActionCancel:
		inFlight := slot.IsActive()
		slot.Cancel()
		if inFlight {
			r.opts.hooks.OnCancel(r.slot.Name)
			r.opts.logger.Debug().Msg("Load cancelled")
		}
		return reducer.Cancel[A](r.id)

	case ActionFinished:
		if r.opts.guard && slot.IsActive() {
			if active, _ := slot.Current().Request(); !Equal(active, action.Request) {
				r.opts.logger.Debug().
					Interface("request", action.Request).
					Interface("active", active).
					Msg("Ignoring result for superseded request")
				return reducer.None[A]()
			}
		}
		slot.Finish(action.Request, action.Result)
		return reducer.None[A]()

	case ActionLoaded:
		return r.reduceChild(slot, action.Child)
	}
	return reducer.None[A]()
}

func (r *loadingReducer[S, A, R, V, C]) reduceChild(slot *State[R, V], action C) reducer.Effect[A] {
	if r.slot.Child == nil {
		return reducer.None[A]()
	}
	value, ok := slot.Value()
	if !ok {
		r.opts.logger.Debug().Msg("Child action ignored, slot has no value")
		return reducer.None[A]()
	}
	before := value
	effect := r.slot.Child.Reduce(&value, action)
	if !Equal(before, value) {
		slot.SetValue(value)
	}
	embed := r.slot.Embed
	return reducer.Map(effect, func(c C) A {
		return embed(Loaded[R, V](c))
	})
}

func (r *loadingReducer[S, A, R, V, C]) start(slot *State[R, V], snapshot S, request R, refreshed bool) reducer.Effect[A] {
	slot.BecomeActive(request)
	r.opts.logger.Debug().
		Interface("request", request).
		Bool("refreshed", refreshed).
		Msg("Load started")

	info := LoadInfo{Slot: r.slot.Name, Request: request, Refreshed: refreshed}
	load, hooks, embed := r.load, r.opts.hooks, r.slot.Embed

	return reducer.Run(func(ctx context.Context, send reducer.SendFunc[A]) (err error) {
		ctx = hooks.OnLoadStart(ctx, info)
		began := time.Now()
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("loadable: loader panicked: %v", p)
			}
			hooks.OnLoadEnd(ctx, info, err, time.Since(began))
		}()

		value, err := load(ctx, request, snapshot)
		if err != nil {
			return err
		}
		send(embed(Finished[R, V, C](request, refreshed, Succeeded(value))))
		return nil
	}, func(err error, send reducer.SendFunc[A]) {
		send(embed(Finished[R, V, C](request, refreshed, Failed[V](err))))
	}).Cancellable(r.id, true)
}
