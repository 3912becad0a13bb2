package loadable

import "fmt"

// ActionKind identifies which loading action was dispatched.
type ActionKind int

const (
	ActionCancel ActionKind = iota
	ActionRefresh
	ActionLoad
	ActionFinished
	ActionLoaded
)

func (k ActionKind) String() string {
	switch k {
	case ActionCancel:
		return "cancel"
	case ActionRefresh:
		return "refresh"
	case ActionLoad:
		return "load"
	case ActionFinished:
		return "finished"
	case ActionLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is the vocabulary a loadable slot responds to. Only the fields
// relevant to Kind are set:
//
//	ActionLoad      Request
//	ActionFinished  Request, Refreshed, Result
//	ActionLoaded    Child
type Action[R comparable, V, C any] struct {
	Kind      ActionKind
	Request   R
	Refreshed bool
	Result    Result[V]
	Child     C
}

// NoAction is the child action type for slots whose value has no actions
// of its own.
type NoAction struct{}

// Cancel abandons the in-flight load and rolls the slot back.
func Cancel[R comparable, V, C any]() Action[R, V, C] {
	return Action[R, V, C]{Kind: ActionCancel}
}

// Refresh reloads using the slot's current request. It does nothing when
// the slot has never had a request.
func Refresh[R comparable, V, C any]() Action[R, V, C] {
	return Action[R, V, C]{Kind: ActionRefresh}
}

// Load starts loading request.
func Load[R comparable, V, C any](request R) Action[R, V, C] {
	return Action[R, V, C]{Kind: ActionLoad, Request: request}
}

// Finished reports the outcome of a load. The combinator sends it when the
// loader returns.
func Finished[R comparable, V, C any](request R, refreshed bool, result Result[V]) Action[R, V, C] {
	return Action[R, V, C]{Kind: ActionFinished, Request: request, Refreshed: refreshed, Result: result}
}

// Loaded wraps an action for the loaded value's own reducer.
func Loaded[R comparable, V, C any](child C) Action[R, V, C] {
	return Action[R, V, C]{Kind: ActionLoaded, Child: child}
}

// Equal compares only the fields relevant to the action's kind.
func (a Action[R, V, C]) Equal(other Action[R, V, C]) bool {
	if a.Kind != other.Kind {
		return false
	}
	switch a.Kind {
	case ActionLoad:
		return Equal(a.Request, other.Request)
	case ActionFinished:
		return Equal(a.Request, other.Request) &&
			a.Refreshed == other.Refreshed &&
			a.Result.Equal(other.Result)
	case ActionLoaded:
		return Equal(a.Child, other.Child)
	default:
		return true
	}
}

func (a Action[R, V, C]) String() string {
	switch a.Kind {
	case ActionLoad:
		return fmt.Sprintf("load(%v)", a.Request)
	case ActionFinished:
		if a.Result.IsSuccess() {
			return fmt.Sprintf("finished(%v, refreshed=%t, success)", a.Request, a.Refreshed)
		}
		return fmt.Sprintf("finished(%v, refreshed=%t, failure: %v)", a.Request, a.Refreshed, a.Result.Err)
	case ActionLoaded:
		return fmt.Sprintf("loaded(%v)", a.Child)
	default:
		return a.Kind.String()
	}
}
