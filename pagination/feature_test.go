package pagination_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basecamp/loadable/loadable"
	"github.com/basecamp/loadable/loadabletest"
	"github.com/basecamp/loadable/pagination"
)

type post struct {
	ID   string
	Body string
}

func (p post) Identity() string { return p.ID }

type (
	state   = pagination.State[post, string]
	page    = pagination.Page[post]
	loading = pagination.PageLoading[post]
)

func posts(ids ...string) []post {
	out := make([]post, len(ids))
	for i, id := range ids {
		out[i] = post{ID: id, Body: "post " + id}
	}
	return out
}

func load(r pagination.PageRequest) loading {
	return loadable.Load[pagination.PageRequest, page, loadable.NoAction](r)
}

func finished(r pagination.PageRequest, result loadable.Result[page]) loading {
	return loadable.Finished[pagination.PageRequest, page, loadable.NoAction](r, false, result)
}

func pageAction(l loading) pagination.Action {
	return pagination.PageAction[post]{Loading: l}
}

func TestLoadPageInsertsAfterMatchingCursor(t *testing.T) {
	initial := pagination.NewState[post, string](nil, "1", "", "page-2-cursor", posts("1", "2"))
	second := page{Previous: "page-1-cursor", Next: "page-3-cursor", Elements: posts("2", "3", "4")}

	requested := make(chan pagination.PageRequest, 1)
	feature := pagination.New[post, string](func(ctx context.Context, r pagination.PageRequest) (page, error) {
		requested <- r
		return second, nil
	})
	store := loadabletest.New(t, initial, feature)

	request := pagination.PageRequest{Direction: pagination.Bottom, Context: pagination.NoContext{}, Cursor: "page-2-cursor"}

	store.Send(pagination.LoadPage{Direction: pagination.Bottom}, nil)
	store.Receive(pageAction(load(request)), func(s *state) {
		s.Page.BecomeActive(request)
	})
	store.Receive(pageAction(finished(request, loadable.Succeeded(second))), func(s *state) {
		s.Page.Finish(request, loadable.Succeeded(second))
		s.Finished(request, second)
	})
	store.Receive(pagination.DidUpdate[post]{Context: pagination.NoContext{}, Pages: []page{initial.Pages[0], second}}, nil)

	assert.Equal(t, pagination.Cursor("page-2-cursor"), (<-requested).Cursor)
	got := store.State()
	require.Len(t, got.Pages, 2)
	assert.True(t, got.Pages[1].Equal(second))
	assert.Equal(t, posts("1", "2", "3", "4"), got.Elements())
	assert.Equal(t, pagination.Cursor("page-3-cursor"), mustCursor(t, got, pagination.Bottom))
}

func TestRefreshReplacesLoadedPage(t *testing.T) {
	initial := pagination.NewState[post, string](nil, "1", "", "c2", posts("1"))
	stale := page{Previous: "c1", Next: "c3", Elements: posts("2")}
	fresh := page{Previous: "c1", Next: "c3", Elements: []post{{ID: "2", Body: "edited"}, {ID: "3", Body: "post 3"}}}

	var calls atomic.Int32
	feature := pagination.New[post, string](func(ctx context.Context, r pagination.PageRequest) (page, error) {
		if calls.Add(1) == 1 {
			return stale, nil
		}
		return fresh, nil
	})
	store := loadabletest.New(t, initial, feature)
	request := pagination.PageRequest{Direction: pagination.Bottom, Context: pagination.NoContext{}, Cursor: "c2"}

	store.Send(pagination.LoadPage{Direction: pagination.Bottom}, nil)
	store.Receive(pageAction(load(request)), func(s *state) {
		s.Page.BecomeActive(request)
	})
	store.Receive(pageAction(finished(request, loadable.Succeeded(stale))), func(s *state) {
		s.Page.Finish(request, loadable.Succeeded(stale))
		s.Finished(request, stale)
	})
	store.Receive(pagination.DidUpdate[post]{Context: pagination.NoContext{}, Pages: []page{initial.Pages[0], stale}}, nil)

	store.Send(pageAction(loadable.Refresh[pagination.PageRequest, page, loadable.NoAction]()), func(s *state) {
		s.Page.BecomeActive(request)
	})
	store.Receive(pageAction(loadable.Finished[pagination.PageRequest, page, loadable.NoAction](request, true, loadable.Succeeded(fresh))), func(s *state) {
		s.Page.Finish(request, loadable.Succeeded(fresh))
		s.Refreshed(request, fresh)
	})
	store.Receive(pagination.DidUpdate[post]{Context: pagination.NoContext{}, Pages: []page{initial.Pages[0], fresh}}, nil)
	store.Finish()

	got := store.State()
	require.Len(t, got.Pages, 2)
	assert.True(t, got.Pages[1].Equal(fresh))
	elements := got.Elements()
	require.Len(t, elements, 3)
	assert.Equal(t, "edited", elements[1].Body)
}

func mustCursor(t *testing.T, s state, d pagination.Direction) pagination.Cursor {
	t.Helper()
	c, ok := s.Cursor(d)
	require.True(t, ok)
	return c
}

func TestSelectPastLastElementLoadsThenSelects(t *testing.T) {
	initial := pagination.NewState[post, string](nil, "2", "", "next", posts("1", "2"))
	next := page{Previous: "prev", Elements: posts("3")}

	var loads atomic.Int32
	feature := pagination.New[post, string](func(ctx context.Context, r pagination.PageRequest) (page, error) {
		loads.Add(1)
		return next, nil
	})
	store := loadabletest.New(t, initial, feature)
	request := pagination.PageRequest{Direction: pagination.Trailing, Context: pagination.NoContext{}, Cursor: "next"}

	store.Send(pagination.Select{Direction: pagination.Trailing}, nil)
	store.Receive(pagination.LoadPage{Direction: pagination.Trailing}, nil)
	store.Receive(pageAction(load(request)), func(s *state) {
		s.Page.BecomeActive(request)
	})
	store.Receive(pageAction(finished(request, loadable.Succeeded(next))), func(s *state) {
		s.Page.Finish(request, loadable.Succeeded(next))
		s.Finished(request, next)
	})
	store.Receive(pagination.DidUpdate[post]{Context: pagination.NoContext{}, Pages: []page{initial.Pages[0], next}}, nil)
	store.Receive(pagination.Select{Direction: pagination.Trailing}, func(s *state) {
		s.Selection = "3"
	})
	store.Receive(pagination.DidSelect[post]{Element: posts("3")[0]}, nil)

	store.Finish()
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 2, store.State().SelectionIndex())
}

func TestVerticalPageLoadDoesNotMoveSelection(t *testing.T) {
	initial := pagination.NewState[post, string](nil, "3", "before", "", posts("2", "3"))
	earlier := page{Next: "after", Elements: posts("1")}

	feature := pagination.New[post, string](func(ctx context.Context, r pagination.PageRequest) (page, error) {
		return earlier, nil
	})
	store := loadabletest.New(t, initial, feature)
	request := pagination.PageRequest{Direction: pagination.Top, Context: pagination.NoContext{}, Cursor: "before"}

	store.Send(pagination.Select{Direction: pagination.Top}, func(s *state) {
		s.Selection = "2"
	})
	store.Receive(pagination.DidSelect[post]{Element: posts("2")[0]}, nil)

	store.Send(pagination.Select{Direction: pagination.Top}, nil)
	store.Receive(pagination.LoadPage{Direction: pagination.Top}, nil)
	store.Receive(pageAction(load(request)), func(s *state) {
		s.Page.BecomeActive(request)
	})
	store.Receive(pageAction(finished(request, loadable.Succeeded(earlier))), func(s *state) {
		s.Page.Finish(request, loadable.Succeeded(earlier))
		s.Finished(request, earlier)
	})
	store.Receive(pagination.DidUpdate[post]{Context: pagination.NoContext{}, Pages: []page{earlier, initial.Pages[0]}}, nil)

	assert.Equal(t, posts("1", "2", "3"), store.State().Elements())
	assert.False(t, store.State().CanPaginate(pagination.Top))
}

func TestFailedPageLoadLeavesPagesAlone(t *testing.T) {
	errOffline := errors.New("offline")
	initial := pagination.NewState[post, string](nil, "1", "", "next", posts("1"))
	feature := pagination.New[post, string](func(ctx context.Context, r pagination.PageRequest) (page, error) {
		return page{}, errOffline
	})
	store := loadabletest.New(t, initial, feature)
	request := pagination.PageRequest{Direction: pagination.Bottom, Context: pagination.NoContext{}, Cursor: "next"}

	store.Send(pagination.LoadPage{Direction: pagination.Bottom}, nil)
	store.Receive(pageAction(load(request)), func(s *state) {
		s.Page.BecomeActive(request)
	})
	store.Receive(pageAction(finished(request, loadable.Failed[page](errOffline))), func(s *state) {
		s.Page.Finish(request, loadable.Failed[page](errOffline))
	})

	assert.True(t, store.State().Page.IsFailure())
	assert.Len(t, store.State().Pages, 1)
}

func TestCancelPageLoad(t *testing.T) {
	initial := pagination.NewState[post, string](nil, "1", "", "next", posts("1"))
	started := make(chan struct{})
	feature := pagination.New[post, string](func(ctx context.Context, r pagination.PageRequest) (page, error) {
		close(started)
		<-ctx.Done()
		return page{}, ctx.Err()
	})
	store := loadabletest.New(t, initial, feature)
	request := pagination.PageRequest{Direction: pagination.Bottom, Context: pagination.NoContext{}, Cursor: "next"}

	store.Send(pagination.LoadPage{Direction: pagination.Bottom}, nil)
	store.Receive(pageAction(load(request)), func(s *state) {
		s.Page.BecomeActive(request)
	})
	<-started
	store.Send(pageAction(loadable.Cancel[pagination.PageRequest, page, loadable.NoAction]()), func(s *state) {
		s.Page = initial.Page
	})
	store.Finish()
	assert.True(t, store.State().Equal(initial))
}

func TestLoadPageWithoutCursorAsserts(t *testing.T) {
	var messages []string
	t.Cleanup(loadable.SetAssertionHandler(func(m string) { messages = append(messages, m) }))

	initial := pagination.NewState[post, string](nil, "1", "", "", posts("1"))
	feature := pagination.New[post, string](func(ctx context.Context, r pagination.PageRequest) (page, error) {
		t.Error("loader must not run")
		return page{}, nil
	})
	store := loadabletest.New(t, initial, feature)

	store.Send(pagination.LoadPage{Direction: pagination.Bottom}, nil)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "without a cursor")
}

func TestSelectElement(t *testing.T) {
	initial := pagination.NewState[post, string](nil, "1", "", "", posts("1", "2", "3"))
	feature := pagination.New[post, string](func(ctx context.Context, r pagination.PageRequest) (page, error) {
		return page{}, nil
	})
	store := loadabletest.New(t, initial, feature)

	store.Send(pagination.SelectElement[string]{ID: "3"}, func(s *state) {
		s.Selection = "3"
	})
	store.Receive(pagination.DidSelect[post]{Element: posts("3")[0]}, nil)

	store.Send(pagination.SelectElement[string]{ID: "nope"}, nil)
}

func TestRefreshInitialPageReturnsLoadedPage(t *testing.T) {
	initial := pagination.NewState[post, string](nil, "1", "", "", posts("1"))
	feature := pagination.New[post, string](func(ctx context.Context, r pagination.PageRequest) (page, error) {
		t.Error("loader must not run for the initial page")
		return page{}, nil
	})
	store := loadabletest.New(t, initial, feature)
	zero := pagination.PageRequest{}

	store.Send(pageAction(loadable.Refresh[pagination.PageRequest, page, loadable.NoAction]()), func(s *state) {
		s.Page.BecomeActive(zero)
	})
	store.Receive(pageAction(loadable.Finished[pagination.PageRequest, page, loadable.NoAction](zero, true, loadable.Succeeded(initial.Pages[0]))), func(s *state) {
		s.Page.Finish(zero, loadable.Succeeded(initial.Pages[0]))
	})
	assert.Len(t, store.State().Pages, 1)
}
