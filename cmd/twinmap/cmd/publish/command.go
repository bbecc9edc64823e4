// Package publish implements the publish command.
package publish

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/twinmap"
	"github.com/agentstation/twinmap/cmd/application"
	"github.com/agentstation/twinmap/internal/cmd/alerts"
	"github.com/agentstation/twinmap/internal/cmd/cmdutil"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/present"
)

// ErrAborted is returned when the confirmation prompt is declined.
var ErrAborted = errors.New("publish aborted")

// NewCommand creates the publish command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		twoSided bool
		yes      bool
	)
	cmd := &cobra.Command{
		Use:     "publish <city> <partner>",
		GroupID: "core",
		Short:   "Add an article-only partner to the graph",
		Long: `Publish compares the city again and adds the partner, which must be
listed by the article only, as a twinned administrative body statement.
The references the article gives for it are attached.

Credentials are read from TWINMAP_USERNAME and TWINMAP_PASSWORD (a bot
password) or TWINMAP_TOKEN (an owner-only OAuth token).`,
		Example: `  twinmap publish https://en.wikipedia.org/wiki/Łowicz Pont-Sainte-Maxence
  twinmap publish https://en.wikipedia.org/wiki/Łowicz "Pont-Sainte-Maxence" --two-sided -y`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			city, partner := args[0], args[1]

			format, err := cmdutil.Format(app)
			if err != nil {
				return err
			}
			if !yes && !cmdutil.Confirm(cmd, fmt.Sprintf("Add %s as a twin city of %s?", partner, city)) {
				return ErrAborted
			}

			tm, err := app.Twinmap(twinmap.WithTwoSided(twoSided))
			if err != nil {
				return err
			}
			res, err := tm.Publish(cmdutil.Context(cmd, app), city, partner)
			if err != nil {
				return err
			}

			switch format {
			case present.FormatJSON, present.FormatYAML:
				return present.NewFormatter(format).Format(cmd.OutOrStdout(), res)
			default:
				alert := alerts.NewSuccess(fmt.Sprintf("Published %s as a twin city", res.PartnerName)).
					WithDetails(fmt.Sprintf("%s -> %s (statement %s, %d references)",
						res.Subject, res.Partner, res.StatementID, res.References))
				if res.ReverseID != "" {
					alert.WithDetails(fmt.Sprintf("%s -> %s (statement %s)", res.Partner, res.Subject, res.ReverseID))
				}
				return alert.Write(cmd.OutOrStdout())
			}
		},
	}

	cmd.Flags().BoolVar(&twoSided, "two-sided", false,
		"Also add the reverse statement on the partner")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false,
		"Do not ask for confirmation")

	return cmd
}
