package reducer

import (
	"context"

	"github.com/google/uuid"
)

// ID identifies a group of cancellable effect operations.
type ID string

// NewID returns a fresh, globally unique cancellation ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// SendFunc delivers an action produced by a running operation.
type SendFunc[A any] func(action A)

// Operation is asynchronous work started by an effect. It should return
// promptly once ctx is cancelled.
type Operation[A any] func(ctx context.Context, send SendFunc[A]) error

// Catch handles an error returned (or a panic raised) by an Operation.
type Catch[A any] func(err error, send SendFunc[A])

type task[A any] struct {
	// immediate tasks carry an action and no operation
	immediate bool
	action    A

	run   Operation[A]
	catch Catch[A]

	id             ID
	cancelInFlight bool
}

// Effect is the work a reducer asks the runtime to perform after an
// action has been reduced. The zero value does nothing.
type Effect[A any] struct {
	tasks   []task[A]
	cancels []ID
}

// None returns an effect that does nothing.
func None[A any]() Effect[A] {
	return Effect[A]{}
}

// Send returns an effect that feeds action back into the reducer as soon
// as the current action has been reduced.
func Send[A any](action A) Effect[A] {
	return Effect[A]{tasks: []task[A]{{immediate: true, action: action}}}
}

// Run returns an effect that runs op asynchronously. If op fails, catch
// (when non-nil) is given the chance to send a final action.
func Run[A any](op Operation[A], catch Catch[A]) Effect[A] {
	return Effect[A]{tasks: []task[A]{{run: op, catch: catch}}}
}

// Cancel returns an effect that cancels every in-flight operation tagged
// with id. Actions those operations send afterwards are discarded.
func Cancel[A any](id ID) Effect[A] {
	return Effect[A]{cancels: []ID{id}}
}

// Merge combines effects. Cancellations are applied before any of the
// merged operations start.
func Merge[A any](effects ...Effect[A]) Effect[A] {
	var merged Effect[A]
	for _, e := range effects {
		merged.tasks = append(merged.tasks, e.tasks...)
		merged.cancels = append(merged.cancels, e.cancels...)
	}
	return merged
}

// Cancellable tags the effect's operations with id. When cancelInFlight
// is set, starting them first cancels operations already running under
// the same id.
func (e Effect[A]) Cancellable(id ID, cancelInFlight bool) Effect[A] {
	tasks := make([]task[A], len(e.tasks))
	for i, t := range e.tasks {
		if !t.immediate {
			t.id = id
			t.cancelInFlight = cancelInFlight
		}
		tasks[i] = t
	}
	return Effect[A]{tasks: tasks, cancels: e.cancels}
}

// IsNone reports whether the effect has no work to do.
func (e Effect[A]) IsNone() bool {
	return len(e.tasks) == 0 && len(e.cancels) == 0
}

// Map transforms the actions an effect produces, typically to embed a
// child feature's actions into its parent's action type.
func Map[A, B any](e Effect[A], f func(A) B) Effect[B] {
	out := Effect[B]{cancels: e.cancels}
	for _, t := range e.tasks {
		mapped := task[B]{
			immediate:      t.immediate,
			id:             t.id,
			cancelInFlight: t.cancelInFlight,
		}
		if t.immediate {
			mapped.action = f(t.action)
		}
		if t.run != nil {
			run := t.run
			mapped.run = func(ctx context.Context, send SendFunc[B]) error {
				return run(ctx, func(a A) { send(f(a)) })
			}
		}
		if t.catch != nil {
			catch := t.catch
			mapped.catch = func(err error, send SendFunc[B]) {
				catch(err, func(a A) { send(f(a)) })
			}
		}
		out.tasks = append(out.tasks, mapped)
	}
	return out
}
