// Package lookup implements the lookup command.
package lookup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/twinmap/cmd/application"
	"github.com/agentstation/twinmap/internal/cmd/cmdutil"
	"github.com/agentstation/twinmap/pkg/present"
)

// NewCommand creates the lookup command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "lookup <article-url>",
		GroupID: "inspect",
		Short:   "Resolve an article URL to its graph entity ids",
		Example: `  twinmap lookup https://en.wikipedia.org/wiki/Bautzen`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmdutil.Format(app)
			if err != nil {
				return err
			}
			tm, err := app.Twinmap()
			if err != nil {
				return err
			}
			ids, err := tm.Lookup(cmdutil.Context(cmd, app), args[0])
			if err != nil {
				return err
			}

			switch format {
			case present.FormatJSON, present.FormatYAML:
				return present.NewFormatter(format).Format(cmd.OutOrStdout(), ids)
			default:
				for _, id := range ids {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
						return err
					}
				}
				return nil
			}
		},
	}
}
