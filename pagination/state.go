package pagination

import (
	"slices"

	"github.com/basecamp/loadable/loadable"
)

// State is a pager over already-fetched pages of E, identified by K.
// It starts from an initial page that the caller has loaded some other
// way, typically with a loadable slot of its own.
type State[E Identifiable[K], K comparable] struct {
	// Context is passed along with every page request.
	Context Context

	// Selection is the identity of the selected element.
	Selection K

	// Page tracks the page currently being fetched.
	Page loadable.State[PageRequest, Page[E]]

	// Pages holds fetched pages in element order. The slice is replaced,
	// never modified in place, so it can be shared with observers.
	Pages []Page[E]
}

// NewState returns a pager over one initial page.
func NewState[E Identifiable[K], K comparable](ctx Context, selection K, previous, next Cursor, elements []E) State[E, K] {
	if ctx == nil {
		ctx = NoContext{}
	}
	page := Page[E]{Previous: previous, Next: next, Elements: elements}
	return State[E, K]{
		Context:   ctx,
		Selection: selection,
		Page:      loadable.NewSuccess(PageRequest{}, page),
		Pages:     []Page[E]{page},
	}
}

// Equal compares context, selection, the page slot and the pages.
func (s State[E, K]) Equal(other State[E, K]) bool {
	return ContextEqual(s.Context, other.Context) &&
		s.Selection == other.Selection &&
		s.Page.Equal(other.Page) &&
		slices.EqualFunc(s.Pages, other.Pages, Page[E].Equal)
}

// Elements returns every loaded element in page order. An element that
// appears on more than one page is kept only where it first appears.
func (s State[E, K]) Elements() []E {
	seen := make(map[K]struct{})
	var elements []E
	for _, page := range s.Pages {
		for _, e := range page.Elements {
			id := e.Identity()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			elements = append(elements, e)
		}
	}
	return elements
}

func (s State[E, K]) indexOf(id K) int {
	return slices.IndexFunc(s.Elements(), func(e E) bool { return e.Identity() == id })
}

// SelectionIndex returns the position of the selection in Elements. A
// selection that is not loaded is a usage error and yields -1.
func (s State[E, K]) SelectionIndex() int {
	i := s.indexOf(s.Selection)
	if i < 0 {
		loadable.AssertionFailure("pagination: unable to find selection %v in pages", s.Selection)
	}
	return i
}

// Cursor returns the cursor for loading beyond the loaded pages in
// direction: the first page's previous cursor, or the last page's next.
func (s State[E, K]) Cursor(direction Direction) (Cursor, bool) {
	if len(s.Pages) == 0 {
		return "", false
	}
	var c Cursor
	if direction.IsPrevious() {
		c = s.Pages[0].Previous
	} else {
		c = s.Pages[len(s.Pages)-1].Next
	}
	return c, c != ""
}

// CanPaginate reports whether a page can be loaded in direction.
func (s State[E, K]) CanPaginate(direction Direction) bool {
	_, ok := s.Cursor(direction)
	return ok
}

// Finished inserts page next to the page request was made from: after
// the page whose next cursor matches when paging forward, before the page
// whose previous cursor matches when paging back. A request matching no
// page is a usage error and leaves the pages unchanged.
func (s *State[E, K]) Finished(request PageRequest, page Page[E]) {
	var index int
	if request.Direction.IsNext() {
		index = slices.IndexFunc(s.Pages, func(p Page[E]) bool { return p.Next == request.Cursor })
		if index >= 0 {
			index++
		}
	} else {
		index = slices.IndexFunc(s.Pages, func(p Page[E]) bool { return p.Previous == request.Cursor })
	}
	if index < 0 {
		loadable.AssertionFailure("pagination: cannot find insertion page for request %v", request)
		return
	}
	s.Pages = slices.Insert(slices.Clone(s.Pages), index, page)
}

// Refreshed replaces the page request loaded earlier with its refreshed
// copy. When no page was loaded for request it inserts like Finished.
func (s *State[E, K]) Refreshed(request PageRequest, page Page[E]) {
	index := -1
	if request.Direction.IsNext() {
		if i := slices.IndexFunc(s.Pages, func(p Page[E]) bool { return p.Next == request.Cursor }); i >= 0 && i+1 < len(s.Pages) {
			index = i + 1
		}
	} else {
		if i := slices.IndexFunc(s.Pages, func(p Page[E]) bool { return p.Previous == request.Cursor }); i > 0 {
			index = i - 1
		}
	}
	if index < 0 {
		s.Finished(request, page)
		return
	}
	pages := slices.Clone(s.Pages)
	pages[index] = page
	s.Pages = pages
}

// SelectNewElement moves the selection one element in direction and
// returns the newly selected element. It reports false at either end of
// the loaded elements.
func (s *State[E, K]) SelectNewElement(direction Direction) (E, bool) {
	var zero E
	elements := s.Elements()
	i := slices.IndexFunc(elements, func(e E) bool { return e.Identity() == s.Selection })
	if i < 0 {
		return zero, false
	}
	if direction.IsNext() {
		i++
	} else {
		i--
	}
	if i < 0 || i >= len(elements) {
		return zero, false
	}
	s.Selection = elements[i].Identity()
	return elements[i], true
}

// SelectElement selects the loaded element with identity id.
func (s *State[E, K]) SelectElement(id K) (E, bool) {
	var zero E
	elements := s.Elements()
	i := slices.IndexFunc(elements, func(e E) bool { return e.Identity() == id })
	if i < 0 {
		return zero, false
	}
	s.Selection = id
	return elements[i], true
}
