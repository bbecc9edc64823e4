// Package globals provides shared flag structures and utilities for CLI commands.
package globals

import (
	"time"

	"github.com/spf13/cobra"
)

// Flags holds global common flags across all commands.
type Flags struct {
	ConfigFile string
	Output     string
	LogLevel   string
	Language   string
	Timeout    time.Duration
	Quiet      bool
	Verbose    bool
	NoColor    bool
}

// AddFlags adds common flags to the root command.
func AddFlags(cmd *cobra.Command) *Flags {
	flags := &Flags{}

	cmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "",
		"Config file (default is $HOME/.twinmap.yaml)")
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", "",
		"Output format: table, wide, json, yaml, markdown")
	// --format is an alias for --output
	cmd.PersistentFlags().StringVar(&flags.Output, "format", "", "")
	_ = cmd.PersistentFlags().MarkHidden("format")

	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "",
		"Log level: trace, debug, info, warn, error (overrides -v/-q)")
	cmd.PersistentFlags().StringVarP(&flags.Language, "language", "l", "",
		"Article edition to compare against, e.g. en, de, pl")
	cmd.PersistentFlags().DurationVar(&flags.Timeout, "timeout", 0,
		"Per-request timeout (10s to 60s)")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false,
		"Minimal output (shortcut for --log-level=warn)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false,
		"Verbose output (shortcut for --log-level=debug)")
	cmd.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false,
		"Disable colored output")

	return flags
}

// Parse extracts global flags from the command hierarchy.
// This is useful for subcommands that need to access global flags when
// they weren't passed the flags struct directly.
func Parse(cmd *cobra.Command) (*Flags, error) {
	root := cmd
	for root.Parent() != nil {
		root = root.Parent()
	}
	pf := root.PersistentFlags()

	flags := &Flags{}
	var err error
	if flags.ConfigFile, err = pf.GetString("config"); err != nil {
		return nil, err
	}
	if flags.Output, err = pf.GetString("output"); err != nil {
		return nil, err
	}
	if flags.LogLevel, err = pf.GetString("log-level"); err != nil {
		return nil, err
	}
	if flags.Language, err = pf.GetString("language"); err != nil {
		return nil, err
	}
	if flags.Timeout, err = pf.GetDuration("timeout"); err != nil {
		return nil, err
	}
	flags.Quiet, _ = pf.GetBool("quiet")
	flags.Verbose, _ = pf.GetBool("verbose")
	flags.NoColor, _ = pf.GetBool("no-color")
	return flags, nil
}
