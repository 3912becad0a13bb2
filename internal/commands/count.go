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
	"github.com/basecamp/loadable/reducer"
)

type countState struct {
	Count loadable.State[catalog.Filter, int]
}

type countAction = loadable.Action[catalog.Filter, int, loadable.NoAction]

// CountResult is the data payload of the count command.
type CountResult struct {
	Query     string `json:"query,omitempty"`
	Count     int    `json:"count"`
	Refreshed bool   `json:"refreshed,omitempty"`
}

// NewCountCmd creates the count command.
func NewCountCmd() *cobra.Command {
	var (
		query   string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count catalog items",
		Long: `Count the items matching a filter.

With --refresh the count is loaded a second time as a refresh, keeping the
first value visible while the second load runs.`,
		Example: `  loadable count
  loadable count --query alpha
  loadable count --refresh -vv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			filter := catalog.Filter{Query: query}
			state, err := loadCount(cmd.Context(), app, filter, refresh)
			if err != nil {
				return err
			}

			n, _ := state.Value()
			result := CountResult{Query: query, Count: n, Refreshed: refresh}
			return app.OK(result,
				output.WithSummary(fmt.Sprintf("%d items match %s", n, filter)),
				output.WithContext("filter", filter.String()),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "pages",
					Cmd:         pagesCmdFor(query),
					Description: "List matching items",
				}),
			)
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Only count items whose title contains this text")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Refresh the count after loading it")

	return cmd
}

// loadCount drives a count slot through a load and, optionally, a refresh.
func loadCount(ctx context.Context, app *appctx.App, filter catalog.Filter, refresh bool) (loadable.State[catalog.Filter, int], error) {
	slot := loadable.Slot[countState, countAction, catalog.Filter, int, loadable.NoAction]{
		Name:    "count",
		State:   func(s *countState) *loadable.State[catalog.Filter, int] { return &s.Count },
		Embed:   func(a countAction) countAction { return a },
		Extract: func(a countAction) (countAction, bool) { return a, true },
	}
	r := loadable.Integrate(reducer.Empty[countState, countAction]{}, slot,
		func(ctx context.Context, f catalog.Filter, _ countState) (int, error) {
			return app.Source.Count(ctx, f)
		}, app.LoadOptions()...)

	store := reducer.NewStore(ctx, countState{}, r, reducer.WithLogger(app.Logger))
	defer store.Close()

	steps := []countAction{loadable.Load[catalog.Filter, int, loadable.NoAction](filter)}
	if refresh {
		steps = append(steps, loadable.Refresh[catalog.Filter, int, loadable.NoAction]())
	}
	for _, action := range steps {
		if err := dispatch(ctx, store, action); err != nil {
			return store.State().Count, err
		}
		if state := store.State().Count; state.Current().Kind() == loadable.Failure {
			err := state.Err()
			if errors.Is(err, context.Canceled) {
				return state, output.ErrCancelled(err)
			}
			return state, output.ErrLoad("count", err)
		}
	}
	return store.State().Count, nil
}

func pagesCmdFor(query string) string {
	if query == "" {
		return "loadable pages"
	}
	return fmt.Sprintf("loadable pages --query %q", query)
}
