package commands

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/basecamp/loadable/internal/catalog"
	"github.com/basecamp/loadable/internal/output"
	"github.com/basecamp/loadable/internal/tui"
	"github.com/basecamp/loadable/pagination"
	"github.com/basecamp/loadable/reducer"
)

// NewBrowseCmd creates the browse command, an interactive pager over the catalog.
func NewBrowseCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the catalog interactively",
		Long: `Open a terminal UI over the catalog.

Moving past the last row loads the following page; moving above the first
row loads the preceding one. Press c to count matching items, r to refresh
the count, x to cancel whatever is loading and q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			if !app.IsInteractive() {
				return output.ErrUsageHint("browse needs an interactive terminal", "Use: "+pagesCmdFor(query))
			}

			ctx := cmd.Context()
			filter := catalog.Filter{Query: query}
			first, err := tui.Load(ctx, tui.NewSpinner(fmt.Sprintf("Loading %s...", filter)),
				func(ctx context.Context) (pagination.Page[catalog.Item], error) {
					return app.Source.First(ctx, filter)
				})
			if err != nil {
				if errors.Is(err, tui.ErrInterrupted) || errors.Is(err, context.Canceled) {
					return output.ErrCancelled(err)
				}
				return output.ErrLoad("first page", err)
			}

			store := reducer.NewStore(ctx, tui.NewState(filter, first),
				tui.NewReducer(app.Source, app.LoadOptions()...), reducer.WithLogger(app.Logger))
			defer store.Close()

			model := tui.NewModel(store, tui.NewStylesWithTheme(tui.ResolveTheme()))
			if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
				if errors.Is(err, tea.ErrProgramKilled) {
					return output.ErrCancelled(err)
				}
				return fmt.Errorf("running browser: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Only show items whose title contains this text")

	return cmd
}
