package pagination

import (
	"fmt"
	"slices"

	"github.com/basecamp/loadable/loadable"
)

// Cursor is an opaque token identifying a page boundary. The empty cursor
// means there is nothing more to load in that direction.
type Cursor string

// Identifiable elements have a stable identity used for selection and
// de-duplication across pages.
type Identifiable[K comparable] interface {
	Identity() K
}

// Page is one fetched page of elements and the cursors to its neighbours.
type Page[E any] struct {
	Previous Cursor
	Next     Cursor
	Elements []E
}

// Equal compares cursors and elements.
func (p Page[E]) Equal(other Page[E]) bool {
	if p.Previous != other.Previous || p.Next != other.Next {
		return false
	}
	return slices.EqualFunc(p.Elements, other.Elements, loadable.Equal[E])
}

// PageRequest asks for the page beyond Cursor in Direction. The zero
// request stands for the initial page, which is never fetched.
type PageRequest struct {
	Direction Direction
	Context   Context
	Cursor    Cursor
}

// IsZero reports whether r is the initial-page request.
func (r PageRequest) IsZero() bool { return r.Cursor == "" }

// Equal compares direction, cursor and context.
func (r PageRequest) Equal(other PageRequest) bool {
	return r.Direction == other.Direction &&
		r.Cursor == other.Cursor &&
		ContextEqual(r.Context, other.Context)
}

func (r PageRequest) String() string {
	if r.IsZero() {
		return "initial"
	}
	return fmt.Sprintf("%s@%s", r.Direction, r.Cursor)
}
