// Package compare implements the compare command.
package compare

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/twinmap"
	"github.com/agentstation/twinmap/cmd/application"
	"github.com/agentstation/twinmap/internal/cmd/cmdutil"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/present"
	"github.com/agentstation/twinmap/pkg/query"
)

// ErrDiscrepancies is returned with --exit-code when a partner is listed
// by one source only.
var ErrDiscrepancies = errors.New("twin-city lists differ")

type flags struct {
	kind     string
	parallel bool
	fold     bool
	cache    bool
	noDiff   bool
	exitCode bool
}

// NewCommand creates the compare command.
func NewCommand(app application.Application) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:     "compare <city>",
		GroupID: "core",
		Short:   "Compare the twin cities of a city in both sources",
		Long: `Compare fetches the twin cities of a city from the Wikidata graph and
from its Wikipedia article, and reports every partner as matched, graph
only or article only.

The city is an article URL or a graph entity IRI. Entity IRIs are
resolved to the article of the configured language.`,
		Example: `  twinmap compare https://en.wikipedia.org/wiki/Łowicz
  twinmap compare Q622395 -o wide
  twinmap compare https://de.wikipedia.org/wiki/Bautzen --language de -o markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, f, args[0])
		},
	}

	cmd.Flags().StringVar(&f.kind, "kind", query.TwinningWithReferences.String(),
		"Graph query: basic or references")
	cmd.Flags().BoolVar(&f.parallel, "parallel", false,
		"Fetch both sources concurrently")
	cmd.Flags().BoolVar(&f.fold, "fold-diacritics", false,
		"Treat Göttingen and Gottingen as the same partner")
	cmd.Flags().BoolVar(&f.cache, "cache", false,
		"Allow cached graph query results")
	cmd.Flags().BoolVar(&f.noDiff, "no-diff", false,
		"Do not compare the fields of matched partners")
	cmd.Flags().BoolVar(&f.exitCode, "exit-code", false,
		"Exit with status 1 when the sources disagree")

	return cmd
}

func run(cmd *cobra.Command, app application.Application, f *flags, city string) error {
	format, err := cmdutil.Format(app)
	if err != nil {
		return err
	}
	opts, err := f.options(cmd)
	if err != nil {
		return err
	}

	tm, err := app.Twinmap(opts...)
	if err != nil {
		return err
	}
	result, err := tm.Compare(cmdutil.Context(cmd, app), city)
	if err != nil {
		return err
	}

	if err := present.Render(cmd.OutOrStdout(), result, format); err != nil {
		return err
	}
	if f.exitCode && result.HasDiscrepancies() {
		return ErrDiscrepancies
	}
	return nil
}

// options returns client options for the flags that were set explicitly.
func (f *flags) options(cmd *cobra.Command) ([]twinmap.Option, error) {
	var opts []twinmap.Option
	changed := cmd.Flags().Changed

	if changed("kind") {
		kind, err := query.ParseKind(f.kind)
		if err != nil {
			return nil, err
		}
		opts = append(opts, twinmap.WithQueryKind(kind))
	}
	if changed("parallel") {
		opts = append(opts, twinmap.WithParallelFetch(f.parallel))
	}
	if changed("fold-diacritics") {
		opts = append(opts, twinmap.WithDiacriticFolding(f.fold))
	}
	if changed("cache") {
		opts = append(opts, twinmap.WithCache(f.cache))
	}
	if f.noDiff {
		opts = append(opts, twinmap.WithFieldDiff(false))
	}
	return opts, nil
}
