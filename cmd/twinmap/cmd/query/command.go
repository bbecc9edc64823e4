// Package query implements the query command.
package query

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/twinmap/cmd/application"
	"github.com/agentstation/twinmap/pkg/query"
)

// NewCommand creates the query command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "query <kind> <city>",
		GroupID: "inspect",
		Short:   "Print the graph query sent for a city",
		Long: `Query prints the SPARQL text of a query kind without sending it.

Kinds: identifier, basic, references.`,
		Example: `  twinmap query references https://en.wikipedia.org/wiki/Bautzen`,
		Args:    cobra.ExactArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			names := make([]string, 0, len(query.Kinds()))
			for _, k := range query.Kinds() {
				names = append(names, k.String())
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := query.ParseKind(args[0])
			if err != nil {
				return err
			}
			tm, err := app.Twinmap()
			if err != nil {
				return err
			}
			text, err := tm.Query(args[1], kind)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}
