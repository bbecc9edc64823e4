// Package cmdutil provides helpers shared by twinmap commands.
package cmdutil

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/twinmap/cmd/application"
	"github.com/agentstation/twinmap/pkg/logging"
	"github.com/agentstation/twinmap/pkg/present"
)

// Context returns the command context carrying the application logger.
func Context(cmd *cobra.Command, app application.Application) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithLogger(ctx, app.Logger())
}

// Format resolves the requested output format, detecting it from the
// terminal when none was given.
func Format(app application.Application) (present.Format, error) {
	format, err := present.ParseFormat(app.OutputFormat())
	if err != nil {
		return "", err
	}
	return present.DetectFormat(string(format)), nil
}

// Confirm asks a yes/no question on the command's streams. Anything but
// y or yes, including end of input, is a no.
func Confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
