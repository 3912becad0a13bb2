package pagination

import "fmt"

// Context is caller-defined information a page load needs besides the
// cursor, such as a search or account ID. It travels with every
// PageRequest.
type Context interface {
	Equal(other Context) bool
}

// NoContext is the Context for features that need none.
type NoContext struct{}

func (NoContext) Equal(other Context) bool {
	_, ok := other.(NoContext)
	return ok
}

func (NoContext) String() string { return "none" }

// ContextEqual compares two contexts, either of which may be nil.
func ContextEqual(a, b Context) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// UnexpectedContextError is returned by page loaders handed a context they
// cannot interpret.
type UnexpectedContextError struct {
	Context Context
}

func (e *UnexpectedContextError) Error() string {
	return fmt.Sprintf("pagination: unexpected context %v", e.Context)
}

// Is matches another UnexpectedContextError carrying an equal context.
func (e *UnexpectedContextError) Is(target error) bool {
	t, ok := target.(*UnexpectedContextError)
	return ok && ContextEqual(e.Context, t.Context)
}
