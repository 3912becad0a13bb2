package commands

import (
	"github.com/spf13/cobra"

	"github.com/basecamp/loadable/internal/output"
	"github.com/basecamp/loadable/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			return app.OK(version.Info(), output.WithSummary(version.Full()))
		},
	}
}
