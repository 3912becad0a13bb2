// Package loadable models an asynchronously loaded value as reducer state.
//
// A State tracks one loadable slot through pending, active, success and
// failure phases, remembering the phase it replaced so views can tell a
// first load from a refresh. Integrate wires a slot into a parent reducer:
// it starts and cancels the load effect, records the result, and forwards
// actions for the loaded value to a child reducer.
package loadable

// Kind identifies a lifecycle phase.
type Kind int

const (
	Pending Kind = iota // no request yet
	Active              // load in flight
	Success             // loaded a value
	Failure             // load failed
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Phase is one lifecycle phase of a slot along with its payload.
// Pending carries nothing; every other phase carries the request.
type Phase[R comparable, V any] struct {
	kind    Kind
	request R
	value   V
	err     error
}

// PendingPhase returns the initial phase.
func PendingPhase[R comparable, V any]() Phase[R, V] {
	return Phase[R, V]{}
}

// ActivePhase returns a phase for a load in flight.
func ActivePhase[R comparable, V any](request R) Phase[R, V] {
	return Phase[R, V]{kind: Active, request: request}
}

// SuccessPhase returns a phase holding a loaded value.
func SuccessPhase[R comparable, V any](request R, value V) Phase[R, V] {
	return Phase[R, V]{kind: Success, request: request, value: value}
}

// FailurePhase returns a phase holding a load error.
func FailurePhase[R comparable, V any](request R, err error) Phase[R, V] {
	return Phase[R, V]{kind: Failure, request: request, err: err}
}

// Kind returns the phase's kind.
func (p Phase[R, V]) Kind() Kind { return p.kind }

// Request returns the phase's request; ok is false for Pending.
func (p Phase[R, V]) Request() (request R, ok bool) {
	if p.kind == Pending {
		return request, false
	}
	return p.request, true
}

// Equal compares kinds and payloads.
func (p Phase[R, V]) Equal(other Phase[R, V]) bool {
	if p.kind != other.kind {
		return false
	}
	switch p.kind {
	case Active:
		return Equal(p.request, other.request)
	case Success:
		return Equal(p.request, other.request) && Equal(p.value, other.value)
	case Failure:
		return Equal(p.request, other.request) && errorsMatch(p.err, other.err)
	default:
		return true
	}
}

// State is a loadable slot embedded in a parent feature's state. The zero
// value is Pending. Mutate it only through its transition methods.
type State[R comparable, V any] struct {
	current  Phase[R, V]
	previous *Phase[R, V]

	// rollback is what Cancel restores while a load is active.
	rollback *snapshot[R, V]
}

type snapshot[R comparable, V any] struct {
	current  Phase[R, V]
	previous *Phase[R, V]
}

// NewPending returns a slot that has never been loaded.
func NewPending[R comparable, V any]() State[R, V] {
	return State[R, V]{}
}

// NewActive returns a slot with a load in flight for request.
func NewActive[R comparable, V any](request R) State[R, V] {
	return State[R, V]{current: ActivePhase[R, V](request)}
}

// NewSuccess returns a slot already holding value.
func NewSuccess[R comparable, V any](request R, value V) State[R, V] {
	return State[R, V]{current: SuccessPhase(request, value)}
}

// NewFailure returns a slot whose load for request failed.
func NewFailure[R comparable, V any](request R, err error) State[R, V] {
	return State[R, V]{current: FailurePhase[R, V](request, err)}
}

// NewWithValue returns a success slot when value is non-nil, otherwise an
// active slot for request.
func NewWithValue[R comparable, V any](request R, value *V) State[R, V] {
	if value == nil {
		return NewActive[R, V](request)
	}
	return NewSuccess(request, *value)
}

// FromPhases rebuilds a slot from explicit phases, mainly for tests.
func FromPhases[R comparable, V any](current Phase[R, V], previous *Phase[R, V]) State[R, V] {
	return State[R, V]{current: current, previous: previous}
}

// set moves to p. The replaced phase becomes previous only when p differs
// from it, so repeating a transition does not erase history.
func (s *State[R, V]) set(p Phase[R, V]) {
	if !s.current.Equal(p) {
		replaced := s.current
		s.previous = &replaced
	}
	s.current = p
}

// Current returns the current phase.
func (s State[R, V]) Current() Phase[R, V] { return s.current }

// Previous returns the phase current replaced, if any.
func (s State[R, V]) Previous() (Phase[R, V], bool) {
	if s.previous == nil {
		return Phase[R, V]{}, false
	}
	return *s.previous, true
}

// IsPending reports whether no request has been made.
func (s State[R, V]) IsPending() bool { return s.current.kind == Pending }

// IsActive reports whether a load is in flight.
func (s State[R, V]) IsActive() bool { return s.current.kind == Active }

// IsSuccess reports whether a loaded value is available, either in the
// current phase or in the phase an in-flight refresh replaced.
func (s State[R, V]) IsSuccess() bool {
	_, ok := s.Loaded()
	return ok
}

// IsFailure reports whether a load error is available, in the current or
// previous phase.
func (s State[R, V]) IsFailure() bool {
	_, ok := s.Failure()
	return ok
}

// IsRefreshing reports whether the current and previous phases both carry
// a request and those requests are equal.
func (s State[R, V]) IsRefreshing() bool {
	current, ok := s.current.Request()
	if !ok || s.previous == nil {
		return false
	}
	previous, ok := s.previous.Request()
	if !ok {
		return false
	}
	return Equal(current, previous)
}

// Request returns the current phase's request, falling back to the
// previous phase's.
func (s State[R, V]) Request() (R, bool) {
	if r, ok := s.current.Request(); ok {
		return r, true
	}
	if s.previous != nil {
		return s.previous.Request()
	}
	var zero R
	return zero, false
}

// Loaded returns the loaded value and its request.
func (s State[R, V]) Loaded() (LoadedValue[R, V], bool) {
	if s.current.kind == Success {
		return LoadedValue[R, V]{Request: s.current.request, Value: s.current.value}, true
	}
	if s.previous != nil && s.previous.kind == Success {
		return LoadedValue[R, V]{Request: s.previous.request, Value: s.previous.value}, true
	}
	return LoadedValue[R, V]{}, false
}

// Value returns the loaded value.
func (s State[R, V]) Value() (V, bool) {
	loaded, ok := s.Loaded()
	return loaded.Value, ok
}

// Failure returns the load error and its request.
func (s State[R, V]) Failure() (LoadedFailure[R], bool) {
	if s.current.kind == Failure {
		return LoadedFailure[R]{Request: s.current.request, Err: s.current.err}, true
	}
	if s.previous != nil && s.previous.kind == Failure {
		return LoadedFailure[R]{Request: s.previous.request, Err: s.previous.err}, true
	}
	return LoadedFailure[R]{}, false
}

// Err returns the load error, or nil.
func (s State[R, V]) Err() error {
	failure, ok := s.Failure()
	if !ok {
		return nil
	}
	return failure.Err
}

// Equal compares the current and previous phases.
func (s State[R, V]) Equal(other State[R, V]) bool {
	if !s.current.Equal(other.current) {
		return false
	}
	if s.previous == nil || other.previous == nil {
		return s.previous == nil && other.previous == nil
	}
	return s.previous.Equal(*other.previous)
}

// BecomeActive starts a load for request. Superseding a load started
// through BecomeActive keeps the earlier rollback, so Cancel returns to the
// state before the first of them.
func (s *State[R, V]) BecomeActive(request R) {
	if s.rollback == nil {
		s.rollback = &snapshot[R, V]{current: s.current, previous: s.previous}
	}
	s.set(ActivePhase[R, V](request))
}

// Cancel abandons an in-flight load, restoring the slot exactly as it was
// before the load started. Outside a load it falls back to the previous
// phase, or Pending.
func (s *State[R, V]) Cancel() {
	if s.current.kind == Active && s.rollback != nil {
		s.current = s.rollback.current
		s.previous = s.rollback.previous
		s.rollback = nil
		return
	}
	s.rollback = nil
	if s.previous != nil {
		s.set(*s.previous)
		return
	}
	s.set(PendingPhase[R, V]())
}

// Finish records the outcome of the load for request. The request is not
// checked against the active one; Integrate does that when asked to.
func (s *State[R, V]) Finish(request R, result Result[V]) {
	s.rollback = nil
	if result.IsSuccess() {
		s.set(SuccessPhase(request, result.Value))
		return
	}
	s.set(FailurePhase[R, V](request, result.Err))
}

// SetValue replaces the loaded value, keeping the current request. Child
// reducers write through it. Setting a value on a pending slot is a usage
// error.
func (s *State[R, V]) SetValue(value V) {
	if s.current.kind == Pending {
		AssertionFailure("loadable: unable to set value from the pending state")
		return
	}
	s.rollback = nil
	s.set(SuccessPhase(s.current.request, value))
}

// Reset drops any value or error and returns the slot to Pending.
func (s *State[R, V]) Reset() {
	s.rollback = nil
	s.set(PendingPhase[R, V]())
}
