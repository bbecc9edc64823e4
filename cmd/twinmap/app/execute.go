package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/twinmap/internal/cmd/alerts"
	"github.com/agentstation/twinmap/internal/cmd/globals"
)

// Execute runs the twinmap CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "twinmap",
		Short:   "Compare twin-city lists between Wikidata and Wikipedia",
		Version: a.version,
		Long: `Twinmap compares the twin cities recorded for a city in the Wikidata
graph with the ones listed in its Wikipedia article.

Every partner is reported as matched (both sources), graph only or
article only. Article-only partners can be published to the graph
with their references.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "inspect",
		Title: "Inspection Commands:",
	})

	globals.AddFlags(rootCmd)

	rootCmd.SetVersionTemplate("twinmap {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs. It reloads the config
// when --config names a file and lets flags override config values.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	flags, err := globals.Parse(cmd)
	if err != nil {
		return err
	}

	if flags.ConfigFile != "" {
		config, err := LoadConfig(flags.ConfigFile)
		if err != nil {
			return err
		}
		a.config = config
	}
	a.config.UpdateFromFlags(flags)

	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.NewCompareCommand())
	rootCmd.AddCommand(a.NewPublishCommand())

	// Inspection commands
	rootCmd.AddCommand(a.NewLookupCommand())
	rootCmd.AddCommand(a.NewQueryCommand())

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitOnError prints an error as an alert and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	_ = alerts.FromError(err).Write(os.Stderr)
	os.Exit(1)
}
