// Package application provides the application interface for twinmap commands.
//
// Commands accept this interface rather than the concrete App type, so they
// can be tested with internal/cmd/application.Mock and offline sources.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            tm, err := app.Twinmap()
//	            if err != nil {
//	                return err
//	            }
//	            result, err := tm.Compare(cmd.Context(), args[0])
//	            // ... render result
//	        },
//	    }
//	}
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/twinmap"
)

// Application provides what commands need from the running process.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Twinmap returns a client configured from flags, environment and the
	// config file. Extra options are applied last; without them the cached
	// default client is returned.
	Twinmap(opts ...twinmap.Option) (twinmap.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the requested output format (table, wide, json,
	// yaml, markdown), empty for auto-detection.
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
