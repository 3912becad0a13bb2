package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basecamp/loadable/internal/catalog"
	"github.com/basecamp/loadable/internal/output"
	"github.com/basecamp/loadable/loadable"
	"github.com/basecamp/loadable/pagination"
	"github.com/basecamp/loadable/reducer"
)

type itemState = pagination.State[catalog.Item, string]

// NewPagesCmd creates the pages command, which pages through the catalog
// without a terminal UI.
func NewPagesCmd() *cobra.Command {
	var (
		direction string
		limit     int
		from      int
		query     string
	)

	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Page through the catalog",
		Long: `Load a starting page, then keep loading neighbouring pages in one direction.

Directions: bottom and trailing load following pages; top and leading load
preceding ones. Loading stops early when there is nothing more to load.`,
		Example: `  loadable pages --limit 3
  loadable pages --from 5 --direction top --limit 2
  loadable pages --query alpha --jq '.data.items[].title'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			dir, err := pagination.ParseDirection(direction)
			if err != nil {
				return output.ErrUsageHint(err.Error(), "Use one of: top, bottom, leading, trailing")
			}
			if limit < 1 {
				return output.ErrUsage("--limit must be at least 1")
			}
			if err := validatePage(from); err != nil {
				return err
			}

			ctx := cmd.Context()
			filter := catalog.Filter{Query: query}
			first, err := loadStartPage(ctx, app, startRequest{Filter: filter, Page: from})
			if err != nil {
				return err
			}

			var selection string
			if len(first.Elements) > 0 {
				selection = first.Elements[0].ID
			}
			state := pagination.NewState[catalog.Item, string](filter, selection, first.Previous, first.Next, first.Elements)
			feature := pagination.New[catalog.Item, string](app.Source.LoadPage, app.LoadOptions()...)
			store := reducer.NewStore[itemState, pagination.Action](ctx, state, feature, reducer.WithLogger(app.Logger))
			defer store.Close()

			for range limit - 1 {
				if !store.State().CanPaginate(dir) {
					break
				}
				if err := dispatch(ctx, store, pagination.Action(pagination.LoadPage{Direction: dir})); err != nil {
					return err
				}
				if page := store.State().Page; page.Current().Kind() != loadable.Success {
					return output.ErrLoad(fmt.Sprintf("%s page", dir), page.Err())
				}
			}

			final := store.State()
			items := final.Elements()
			previous, _ := final.Cursor(pagination.Top)
			next, _ := final.Cursor(pagination.Bottom)

			opts := []output.ResponseOption{
				output.WithSummary(fmt.Sprintf("%d items across %d pages", len(items), len(final.Pages))),
				output.WithContext("filter", filter.String()),
				output.WithContext("direction", dir.String()),
				output.WithMeta("pages", len(final.Pages)),
				output.WithMeta("previous", string(previous)),
				output.WithMeta("next", string(next)),
				output.WithBreadcrumbs(pagesBreadcrumbs(final, from, dir, query)...),
			}
			return app.OK(items, opts...)
		},
	}

	cmd.Flags().StringVarP(&direction, "direction", "d", "bottom", "Direction to page in (top, bottom, leading, trailing)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 3, "Number of pages to load, including the first")
	cmd.Flags().IntVar(&from, "from", 1, "Page to start from")
	cmd.Flags().StringVar(&query, "query", "", "Only include items whose title contains this text")

	return cmd
}

func pagesBreadcrumbs(s itemState, from int, dir pagination.Direction, query string) []output.Breadcrumb {
	var crumbs []output.Breadcrumb
	q := ""
	if query != "" {
		q = fmt.Sprintf(" --query %q", query)
	}
	loaded := len(s.Pages)
	if dir.IsNext() && s.CanPaginate(pagination.Bottom) {
		crumbs = append(crumbs, output.Breadcrumb{
			Action:      "more",
			Cmd:         fmt.Sprintf("loadable pages --from %d%s", from+loaded, q),
			Description: "Load the following pages",
		})
	}
	if dir.IsPrevious() && s.CanPaginate(pagination.Top) {
		crumbs = append(crumbs, output.Breadcrumb{
			Action:      "more",
			Cmd:         fmt.Sprintf("loadable pages --from %d --direction %s%s", from-loaded, dir, q),
			Description: "Load the preceding pages",
		})
	}
	crumbs = append(crumbs, output.Breadcrumb{
		Action:      "count",
		Cmd:         "loadable count" + q,
		Description: "Count matching items",
	})
	return crumbs
}
