// Package cmdtest provides offline fixtures for command tests.
package cmdtest

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/twinmap"
	"github.com/agentstation/twinmap/internal/cmd/application"
	"github.com/agentstation/twinmap/pkg/normalize"
	"github.com/agentstation/twinmap/pkg/present"
	"github.com/agentstation/twinmap/pkg/sources"
	"github.com/agentstation/twinmap/pkg/sparql"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Lowicz is the city all fixtures describe.
const Lowicz = "https://en.wikipedia.org/wiki/%C5%81owicz"

// GraphRows lists Kamenz and Göttingen.
func GraphRows() *sparql.RowSet {
	return &sparql.RowSet{Rows: []sparql.Row{
		{
			normalize.VarTargetID:    sparql.URLValue("http://www.wikidata.org/entity/Q8778"),
			normalize.VarTargetLabel: sparql.LangValue("Kamenz", "en"),
			normalize.VarTargetURL:   sparql.URLValue("https://en.wikipedia.org/wiki/Kamenz"),
		},
		{
			normalize.VarTargetID:    sparql.URLValue("http://www.wikidata.org/entity/Q3033"),
			normalize.VarTargetLabel: sparql.LangValue("Göttingen", "en"),
		},
	}}
}

// ArticleRows lists Kamenz and Pont-Sainte-Maxence.
func ArticleRows() *sparql.RowSet {
	return &sparql.RowSet{Rows: []sparql.Row{
		{
			normalize.VarTargetLabel: sparql.StringValue("Kamenz"),
			normalize.VarTargetURL:   sparql.URLValue("https://en.wikipedia.org/wiki/Kamenz"),
		},
		{
			normalize.VarTargetLabel:  sparql.StringValue("Pont-Sainte-Maxence"),
			normalize.VarTargetURL:    sparql.URLValue("https://en.wikipedia.org/wiki/Pont-Sainte-Maxence"),
			normalize.VarRefNode:      sparql.StringValue("cite_note-1"),
			normalize.VarReferenceURL: sparql.URLValue("https://www.lowicz.eu/"),
		},
	}}
}

// App returns a mock application whose clients read the fixtures and
// publish through writer.
func App(format string, writer present.GraphWriter) *application.Mock {
	return &application.Mock{
		OutputFormatFunc: func() string { return format },
		TwinmapFunc: func(opts ...twinmap.Option) (twinmap.Client, error) {
			base := []twinmap.Option{
				twinmap.WithSources(
					sources.Static(twins.SourceGraph, GraphRows()),
					sources.Static(twins.SourceArticle, ArticleRows()),
				),
				twinmap.WithCredentials(present.Credentials{Token: "test"}),
			}
			if writer != nil {
				base = append(base, twinmap.WithGraphWriter(writer))
			}
			return twinmap.New(append(base, opts...)...)
		},
	}
}

// Run executes cmd with args and stdin, returning stdout.
func Run(cmd *cobra.Command, stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// Writer records published partners.
type Writer struct {
	Added []string
}

// Login implements present.GraphWriter.
func (w *Writer) Login(context.Context, string, string) error { return nil }

// ResolveEntity implements present.GraphWriter.
func (w *Writer) ResolveEntity(_ context.Context, city twins.CityID) (string, error) {
	if city.Title() == "Łowicz" {
		return "Q622395", nil
	}
	return "Q661599", nil
}

// Label implements present.GraphWriter.
func (w *Writer) Label(_ context.Context, id string) (string, error) { return id, nil }

// AddTwin implements present.GraphWriter.
func (w *Writer) AddTwin(_ context.Context, subject, partnerID string, _ twins.Record) (string, error) {
	w.Added = append(w.Added, subject+"->"+partnerID)
	return subject + "$" + partnerID, nil
}
