package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/twinmap/cmd/twinmap/cmd/compare"
	"github.com/agentstation/twinmap/cmd/twinmap/cmd/lookup"
	"github.com/agentstation/twinmap/cmd/twinmap/cmd/publish"
	"github.com/agentstation/twinmap/cmd/twinmap/cmd/query"
)

// NewCompareCommand creates the compare command with app dependencies.
func (a *App) NewCompareCommand() *cobra.Command {
	return compare.NewCommand(a)
}

// NewPublishCommand creates the publish command with app dependencies.
func (a *App) NewPublishCommand() *cobra.Command {
	return publish.NewCommand(a)
}

// NewLookupCommand creates the lookup command with app dependencies.
func (a *App) NewLookupCommand() *cobra.Command {
	return lookup.NewCommand(a)
}

// NewQueryCommand creates the query command with app dependencies.
func (a *App) NewQueryCommand() *cobra.Command {
	return query.NewCommand(a)
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("twinmap %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
