package tui

import (
	"context"
	"fmt"

	"github.com/basecamp/loadable/internal/catalog"
	"github.com/basecamp/loadable/loadable"
	"github.com/basecamp/loadable/pagination"
	"github.com/basecamp/loadable/reducer"
)

type (
	// ListState pages through catalog items.
	ListState = pagination.State[catalog.Item, string]

	// CountLoading is the vocabulary of the count slot.
	CountLoading = loadable.Action[catalog.Filter, int, loadable.NoAction]
)

// State is the browser's state: a paged list of items and a separately
// loaded count of everything matching the filter.
type State struct {
	Filter catalog.Filter
	Count  loadable.State[catalog.Filter, int]
	List   ListState
	Status string
}

// NewState starts a browser over a first page fetched for filter.
func NewState(filter catalog.Filter, first pagination.Page[catalog.Item]) State {
	var selection string
	if len(first.Elements) > 0 {
		selection = first.Elements[0].ID
	}
	return State{
		Filter: filter,
		Count:  loadable.NewPending[catalog.Filter, int](),
		List:   pagination.NewState[catalog.Item, string](filter, selection, first.Previous, first.Next, first.Elements),
	}
}

// Equal compares every field, using the slots' own equality.
func (s State) Equal(other State) bool {
	return s.Filter == other.Filter &&
		s.Count.Equal(other.Count) &&
		s.List.Equal(other.List) &&
		s.Status == other.Status
}

// Selected returns the selected item.
func (s State) Selected() (catalog.Item, bool) {
	for _, item := range s.List.Elements() {
		if item.ID == s.List.Selection {
			return item, true
		}
	}
	return catalog.Item{}, false
}

// Action is a browser action.
type Action interface {
	browserAction()
}

// ListAction wraps an action for the paged list.
type ListAction struct {
	Action pagination.Action
}

// CountAction wraps an action for the count slot.
type CountAction struct {
	Loading CountLoading
}

// CancelAll cancels both the count and any page load in flight.
type CancelAll struct{}

func (ListAction) browserAction()  {}
func (CountAction) browserAction() {}
func (CancelAll) browserAction()   {}

func (a ListAction) String() string  { return fmt.Sprintf("list.%v", a.Action) }
func (a CountAction) String() string { return "count." + a.Loading.String() }
func (CancelAll) String() string     { return "cancelAll" }

// LoadCount counts the items matching filter.
func LoadCount(filter catalog.Filter) Action {
	return CountAction{Loading: loadable.Load[catalog.Filter, int, loadable.NoAction](filter)}
}

// RefreshCount recounts with the last filter.
func RefreshCount() Action {
	return CountAction{Loading: loadable.Refresh[catalog.Filter, int, loadable.NoAction]()}
}

// NewReducer builds the browser reducer over src. Options apply to both
// the page slot and the count slot.
func NewReducer(src *catalog.Source, opts ...loadable.Option) reducer.Reducer[State, Action] {
	list := reducer.Scope[State, Action, ListState, pagination.Action](
		pagination.New[catalog.Item, string](src.LoadPage, opts...),
		func(s *State) *ListState { return &s.List },
		func(a Action) (pagination.Action, bool) {
			l, ok := a.(ListAction)
			return l.Action, ok
		},
		func(a pagination.Action) Action { return ListAction{Action: a} },
	)

	core := reducer.Combine(list, reducer.ReduceFunc[State, Action](reduce))

	count := loadable.Slot[State, Action, catalog.Filter, int, loadable.NoAction]{
		Name:  "count",
		State: func(s *State) *loadable.State[catalog.Filter, int] { return &s.Count },
		Embed: func(a CountLoading) Action { return CountAction{Loading: a} },
		Extract: func(a Action) (CountLoading, bool) {
			c, ok := a.(CountAction)
			return c.Loading, ok
		},
	}
	return loadable.Integrate(core, count, func(ctx context.Context, filter catalog.Filter, _ State) (int, error) {
		return src.Count(ctx, filter)
	}, opts...)
}

func reduce(s *State, action Action) reducer.Effect[Action] {
	switch a := action.(type) {
	case CancelAll:
		effects := []reducer.Effect[Action]{}
		if s.Count.IsActive() {
			effects = append(effects, reducer.Send[Action](CountAction{Loading: loadable.Cancel[catalog.Filter, int, loadable.NoAction]()}))
		}
		if s.List.Page.IsActive() {
			effects = append(effects, reducer.Send[Action](ListAction{Action: pagination.PageAction[catalog.Item]{
				Loading: loadable.Cancel[pagination.PageRequest, pagination.Page[catalog.Item], loadable.NoAction](),
			}}))
		}
		if len(effects) == 0 {
			s.Status = "Nothing to cancel"
		} else {
			s.Status = "Cancelled"
		}
		return reducer.Merge(effects...)

	case CountAction:
		if failed(a.Loading, s.Count.Current().Kind()) {
			s.Status = "Count failed: " + a.Loading.Result.Err.Error()
		}

	case ListAction:
		switch d := a.Action.(type) {
		case pagination.DidSelect[catalog.Item]:
			s.Status = "Selected " + d.Element.Title
		case pagination.DidUpdate[catalog.Item]:
			s.Status = fmt.Sprintf("%d pages loaded", len(d.Pages))
		case pagination.PageAction[catalog.Item]:
			switch {
			case d.Loading.Kind == loadable.ActionLoad:
				s.Status = "Loading " + d.Loading.Request.Direction.String() + "..."
			case failed(d.Loading, s.List.Page.Current().Kind()):
				s.Status = "Page failed: " + d.Loading.Result.Err.Error()
			}
		}
	}
	return reducer.None[Action]()
}

// failed reports whether a was a failed result the slot accepted.
func failed[R comparable, V any](a loadable.Action[R, V, loadable.NoAction], current loadable.Kind) bool {
	return a.Kind == loadable.ActionFinished && !a.Result.IsSuccess() && current == loadable.Failure
}
