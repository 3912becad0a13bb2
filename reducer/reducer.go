// Package reducer is a small reducer/effect runtime layered on bubbletea.
//
// A Reducer mutates state synchronously in response to an action and
// returns an Effect describing follow-up work. Effects either send more
// actions straight away or run operations that report back through a
// tea.Cmd. Operations may be tagged with an ID so later actions can cancel
// them.
package reducer

// Reducer evolves a feature's state in response to an action.
type Reducer[S, A any] interface {
	Reduce(state *S, action A) Effect[A]
}

// ReduceFunc adapts a plain function to the Reducer interface.
type ReduceFunc[S, A any] func(state *S, action A) Effect[A]

// Reduce calls f(state, action).
func (f ReduceFunc[S, A]) Reduce(state *S, action A) Effect[A] {
	return f(state, action)
}

// Empty is a reducer that ignores every action.
type Empty[S, A any] struct{}

// Reduce implements Reducer.
func (Empty[S, A]) Reduce(*S, A) Effect[A] { return None[A]() }

// Combine runs reducers in order against the same state and merges
// their effects. Nil reducers are skipped.
func Combine[S, A any](reducers ...Reducer[S, A]) Reducer[S, A] {
	return ReduceFunc[S, A](func(state *S, action A) Effect[A] {
		effects := make([]Effect[A], 0, len(reducers))
		for _, r := range reducers {
			if r == nil {
				continue
			}
			effects = append(effects, r.Reduce(state, action))
		}
		return Merge(effects...)
	})
}

// Scope runs child against the part of the parent state that state
// returns, for parent actions that extract reports as child actions.
// Actions the child's effects produce are embedded back into the parent
// action type.
func Scope[S, A, CS, CA any](child Reducer[CS, CA], state func(*S) *CS, extract func(A) (CA, bool), embed func(CA) A) Reducer[S, A] {
	return ReduceFunc[S, A](func(s *S, action A) Effect[A] {
		ca, ok := extract(action)
		if !ok {
			return None[A]()
		}
		return Map(child.Reduce(state(s), ca), embed)
	})
}
