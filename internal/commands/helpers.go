package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basecamp/loadable/internal/appctx"
	"github.com/basecamp/loadable/internal/catalog"
	"github.com/basecamp/loadable/internal/output"
	"github.com/basecamp/loadable/loadable"
	"github.com/basecamp/loadable/pagination"
	"github.com/basecamp/loadable/reducer"
)

// requireApp returns the app stored on the command's context.
func requireApp(cmd *cobra.Command) (*appctx.App, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}

// dispatch sends action to store and waits for every effect it starts.
func dispatch[S, A any](ctx context.Context, store *reducer.Store[S, A], action A) error {
	if err := store.Settle(ctx, store.Dispatch(action)); err != nil {
		return output.ErrCancelled(err)
	}
	return nil
}

// startRequest addresses the page a listing starts from.
type startRequest struct {
	Filter catalog.Filter
	Page   int
}

func (r startRequest) String() string {
	return fmt.Sprintf("%s@%d", r.Filter, r.Page)
}

type startState struct {
	Page loadable.State[startRequest, pagination.Page[catalog.Item]]
}

type startAction = loadable.Action[startRequest, pagination.Page[catalog.Item], loadable.NoAction]

// loadStartPage fetches the page a listing starts from through a loadable
// slot, so it is traced and counted like every other load.
func loadStartPage(ctx context.Context, app *appctx.App, req startRequest) (pagination.Page[catalog.Item], error) {
	slot := loadable.Slot[startState, startAction, startRequest, pagination.Page[catalog.Item], loadable.NoAction]{
		Name:    "start",
		State:   func(s *startState) *loadable.State[startRequest, pagination.Page[catalog.Item]] { return &s.Page },
		Embed:   func(a startAction) startAction { return a },
		Extract: func(a startAction) (startAction, bool) { return a, true },
	}
	r := loadable.Integrate(reducer.Empty[startState, startAction]{}, slot,
		func(ctx context.Context, req startRequest, _ startState) (pagination.Page[catalog.Item], error) {
			return app.Source.Fetch(ctx, req.Filter, catalog.Cursor(req.Page-1))
		}, app.LoadOptions()...)

	store := reducer.NewStore(ctx, startState{}, r, reducer.WithLogger(app.Logger))
	defer store.Close()

	load := loadable.Load[startRequest, pagination.Page[catalog.Item], loadable.NoAction](req)
	if err := dispatch(ctx, store, load); err != nil {
		return pagination.Page[catalog.Item]{}, err
	}

	page, ok := store.State().Page.Value()
	if !ok {
		err := store.State().Page.Err()
		if errors.Is(err, catalog.ErrBadCursor) {
			return page, output.ErrNotFound("page", fmt.Sprint(req.Page))
		}
		if errors.Is(err, context.Canceled) {
			return page, output.ErrCancelled(err)
		}
		return page, output.ErrLoad("first page", err)
	}
	return page, nil
}

func validatePage(n int) error {
	if n < 1 {
		return output.ErrUsageHint(fmt.Sprintf("invalid page %d", n), "Pages are numbered from 1")
	}
	return nil
}
