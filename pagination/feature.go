// Package pagination pages through a cursor-based list of elements that
// has already had its first page loaded.
//
// The Feature reducer keeps the fetched pages in order, moves a selection
// across them, and loads the neighbouring page when the selection reaches
// the edge of what is loaded. Page loads run through a loadable slot, so
// they can be cancelled and a new load supersedes one in flight.
package pagination

import (
	"context"

	"github.com/basecamp/loadable/loadable"
	"github.com/basecamp/loadable/reducer"
)

// LoadPageFunc fetches the page a request asks for.
type LoadPageFunc[E any] func(ctx context.Context, request PageRequest) (Page[E], error)

// Feature is the pagination reducer.
type Feature[E Identifiable[K], K comparable] struct {
	reducer reducer.Reducer[State[E, K], Action]
}

// New builds a Feature that fetches pages with load. Options configure the
// page slot.
func New[E Identifiable[K], K comparable](load LoadPageFunc[E], opts ...loadable.Option) *Feature[E, K] {
	slot := loadable.Slot[State[E, K], Action, PageRequest, Page[E], loadable.NoAction]{
		Name:  "page",
		State: func(s *State[E, K]) *loadable.State[PageRequest, Page[E]] { return &s.Page },
		Embed: func(a PageLoading[E]) Action { return PageAction[E]{Loading: a} },
		Extract: func(a Action) (PageLoading[E], bool) {
			p, ok := a.(PageAction[E])
			return p.Loading, ok
		},
	}
	fetch := func(ctx context.Context, request PageRequest, s State[E, K]) (Page[E], error) {
		if request.IsZero() {
			page, _ := s.Page.Value()
			return page, nil
		}
		return load(ctx, request)
	}
	core := reducer.ReduceFunc[State[E, K], Action](reduce[E, K])
	return &Feature[E, K]{reducer: loadable.Integrate(core, slot, fetch, opts...)}
}

// Reduce implements reducer.Reducer.
func (f *Feature[E, K]) Reduce(state *State[E, K], action Action) reducer.Effect[Action] {
	return f.reducer.Reduce(state, action)
}

func reduce[E Identifiable[K], K comparable](s *State[E, K], action Action) reducer.Effect[Action] {
	switch a := action.(type) {
	case LoadPage:
		cursor, ok := s.Cursor(a.Direction)
		if !ok {
			loadable.AssertionFailure("pagination: attempt to load page %s without a cursor", a.Direction)
			return reducer.None[Action]()
		}
		request := PageRequest{Direction: a.Direction, Context: s.Context, Cursor: cursor}
		return reducer.Send[Action](PageAction[E]{Loading: loadable.Load[PageRequest, Page[E], loadable.NoAction](request)})

	case PageAction[E]:
		return pageFinished(s, a.Loading)

	case Select:
		element, ok := s.SelectNewElement(a.Direction)
		if !ok {
			return reducer.Send[Action](LoadPage{Direction: a.Direction})
		}
		return reducer.Send[Action](DidSelect[E]{Element: element})

	case SelectElement[K]:
		element, ok := s.SelectElement(a.ID)
		if !ok {
			return reducer.None[Action]()
		}
		return reducer.Send[Action](DidSelect[E]{Element: element})
	}
	return reducer.None[Action]()
}

// pageFinished inserts a successfully loaded page. It runs after the page
// slot has reduced the action, so a result the slot rejected is skipped.
func pageFinished[E Identifiable[K], K comparable](s *State[E, K], loading PageLoading[E]) reducer.Effect[Action] {
	if loading.Kind != loadable.ActionFinished || loading.Request.IsZero() || !loading.Result.IsSuccess() {
		return reducer.None[Action]()
	}
	current := s.Page.Current()
	if request, ok := current.Request(); current.Kind() != loadable.Success || !ok || !request.Equal(loading.Request) {
		return reducer.None[Action]()
	}

	if loading.Refreshed {
		s.Refreshed(loading.Request, loading.Result.Value)
		return reducer.Send[Action](DidUpdate[E]{Context: s.Context, Pages: s.Pages})
	}
	s.Finished(loading.Request, loading.Result.Value)
	updated := reducer.Send[Action](DidUpdate[E]{Context: s.Context, Pages: s.Pages})
	if loading.Request.Direction.IsHorizontalPaging() {
		return reducer.Merge(updated, reducer.Send[Action](Select{Direction: loading.Request.Direction}))
	}
	return updated
}
