package pagination

import (
	"fmt"

	"github.com/basecamp/loadable/loadable"
)

// Action is an input to a pagination Feature: LoadPage, Select,
// SelectElement, PageAction, or one of the Delegate events the feature
// emits for its parent.
type Action interface {
	paginationAction()
}

// PageLoading is the loading vocabulary of the page slot.
type PageLoading[E any] = loadable.Action[PageRequest, Page[E], loadable.NoAction]

// LoadPage loads the page beyond the loaded pages in Direction.
type LoadPage struct {
	Direction Direction
}

// Select moves the selection one element in Direction, loading the next
// page first when the selection is at the edge of the loaded elements.
type Select struct {
	Direction Direction
}

// SelectElement selects a loaded element by identity. Unknown identities
// are ignored.
type SelectElement[K comparable] struct {
	ID K
}

// PageAction carries page slot actions. Features send these to
// themselves while loading a page.
type PageAction[E any] struct {
	Loading PageLoading[E]
}

// Delegate events report to the parent feature.
type Delegate interface {
	Action
	delegate()
}

// DidSelect is emitted whenever the selection changes.
type DidSelect[E any] struct {
	Element E
}

// DidUpdate is emitted after a page is inserted, with all pages.
type DidUpdate[E any] struct {
	Context Context
	Pages   []Page[E]
}

func (LoadPage) paginationAction()         {}
func (Select) paginationAction()           {}
func (SelectElement[K]) paginationAction() {}
func (PageAction[E]) paginationAction()    {}
func (DidSelect[E]) paginationAction()     {}
func (DidUpdate[E]) paginationAction()     {}

func (DidSelect[E]) delegate() {}
func (DidUpdate[E]) delegate() {}

func (a LoadPage) String() string { return "loadPage(" + a.Direction.String() + ")" }

func (a Select) String() string { return "select(" + a.Direction.String() + ")" }

func (a SelectElement[K]) String() string { return fmt.Sprintf("selectElement(%v)", a.ID) }

func (a PageAction[E]) String() string { return "page." + a.Loading.String() }

func (a DidSelect[E]) String() string { return fmt.Sprintf("delegate.didSelect(%v)", a.Element) }

func (a DidUpdate[E]) String() string {
	return fmt.Sprintf("delegate.didUpdate(%v, %d pages)", a.Context, len(a.Pages))
}
