package loadable

import "errors"

// EmptyRequest is the request type for loads that need no parameter.
type EmptyRequest struct{}

// Result is the outcome of a load: a value, or the error that prevented it.
type Result[V any] struct {
	Value V
	Err   error
}

// Succeeded wraps a loaded value.
func Succeeded[V any](value V) Result[V] {
	return Result[V]{Value: value}
}

// Failed wraps a load error.
func Failed[V any](err error) Result[V] {
	return Result[V]{Err: err}
}

// IsSuccess reports whether the result carries a value.
func (r Result[V]) IsSuccess() bool { return r.Err == nil }

// Get returns the value and error.
func (r Result[V]) Get() (V, error) { return r.Value, r.Err }

// Equal reports whether both results succeeded with equal values or
// failed with matching errors.
func (r Result[V]) Equal(other Result[V]) bool {
	if r.IsSuccess() != other.IsSuccess() {
		return false
	}
	if r.IsSuccess() {
		return Equal(r.Value, other.Value)
	}
	return errorsMatch(r.Err, other.Err)
}

// LoadedValue pairs a value with the request that produced it.
type LoadedValue[R comparable, V any] struct {
	Request R
	Value   V
}

// Equal requires both the request and the value to match.
func (l LoadedValue[R, V]) Equal(other LoadedValue[R, V]) bool {
	return Equal(l.Request, other.Request) && Equal(l.Value, other.Value)
}

// LoadedFailure pairs a load error with the request that produced it.
type LoadedFailure[R comparable] struct {
	Request R
	Err     error
}

// Equal requires both the request and the error to match.
func (l LoadedFailure[R]) Equal(other LoadedFailure[R]) bool {
	return Equal(l.Request, other.Request) && errorsMatch(l.Err, other.Err)
}

// Equal compares two values of the same type. A type's own
// Equal(T) bool method wins; otherwise values are compared with ==.
// Values whose dynamic type is not comparable are never equal.
func Equal[T any](a, b T) bool {
	if eq, ok := any(a).(interface{ Equal(T) bool }); ok {
		return eq.Equal(b)
	}
	return comparableEqual(a, b)
}

func comparableEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}

func errorsMatch(a, b error) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return errors.Is(a, b) || errors.Is(b, a)
}
