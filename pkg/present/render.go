package present

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	md "github.com/nao1215/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/twinmap/pkg/differ"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/reconciler"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Status symbols give each section a consistent marker in terminal output.
const (
	// SymbolMatched marks partners both sources agree on.
	SymbolMatched = "✓"
	// SymbolGraphOnly marks partners missing from the article.
	SymbolGraphOnly = "!"
	// SymbolArticleOnly marks partners that could be added to the graph.
	SymbolArticleOnly = "+"
	// SymbolUnknown marks an unrecognized status.
	SymbolUnknown = "?"
)

// Symbol returns the marker of status.
func Symbol(status reconciler.Status) string {
	switch status {
	case reconciler.StatusMatched:
		return SymbolMatched
	case reconciler.StatusGraphOnly:
		return SymbolGraphOnly
	case reconciler.StatusArticleOnly:
		return SymbolArticleOnly
	default:
		return SymbolUnknown
	}
}

// Label returns the human-readable name of status, e.g. "Graph Only".
func Label(status reconciler.Status) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(strings.ToLower(string(status)), "_", " "))
}

// Render writes result to w in format. The table formats draw one section
// per status; JSON and YAML serialize the result as is.
func Render(w io.Writer, result *reconciler.Result, format Format) error {
	if result == nil {
		return &errors.ValidationError{Field: "result", Message: "cannot be nil"}
	}
	switch format {
	case FormatJSON, FormatYAML:
		return NewFormatter(format).Format(w, result)
	case FormatMarkdown:
		return renderMarkdown(w, result)
	case FormatTable, FormatWide, "":
		return renderTables(w, result, format == FormatWide)
	default:
		_, err := ParseFormat(string(format))
		return err
	}
}

func renderTables(w io.Writer, result *reconciler.Result, wide bool) error {
	if result.City != "" {
		if _, err := fmt.Fprintf(w, "Twin cities of %s\n\n", Title(result.City)); err != nil {
			return err
		}
	}
	if result.Len() == 0 {
		_, err := fmt.Fprintln(w, result.Summary())
		return err
	}

	for _, status := range reconciler.Statuses() {
		entries := result.ByStatus(status)
		if len(entries) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s %s (%d)\n", Symbol(status), Label(status), len(entries)); err != nil {
			return err
		}
		if err := writeTable(w, EntriesTable(entries, wide)); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, result.Summary())
	return err
}

// EntriesTable converts entries to table data. The wide layout adds the
// canonical key, the graph id, the partner URL and field differences.
func EntriesTable(entries []reconciler.Entry, wide bool) Data {
	headers := []string{"Partner", "Country", "Start", "End", "Refs"}
	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight}
	if wide {
		headers = append(headers, "Key", "Graph ID", "URL", "Differences")
		align = append(align, AlignLeft, AlignLeft, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rec := e.Record()
		if rec == nil {
			continue
		}
		row := []string{
			e.Name(),
			country(e),
			dateCell(rec.Start),
			dateCell(rec.End),
			strconv.Itoa(referenceCount(e)),
		}
		if wide {
			row = append(row, e.Key, partnerID(e), partnerURL(e), Changes(e.Changes))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// Changes formats field differences as "start: 1992 -> 1993; refs: 1 -> 0".
func Changes(changes []differ.FieldChange) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", c.Path, orDash(c.GraphValue), orDash(c.ArticleValue)))
	}
	return strings.Join(parts, "; ")
}

func renderMarkdown(w io.Writer, result *reconciler.Result) error {
	doc := md.NewMarkdown(w)
	title := "Twin cities"
	if result.City != "" {
		title += " of " + Title(result.City)
	}
	doc.H1(title)
	doc.PlainText(result.Summary()).LF()

	for _, status := range reconciler.Statuses() {
		entries := result.ByStatus(status)
		doc.H2(fmt.Sprintf("%s (%d)", Label(status), len(entries)))
		if len(entries) == 0 {
			doc.PlainText(md.Italic("None")).LF()
			continue
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if u := partnerURL(e); u != "" {
				name = md.Link(name, u)
			}
			rows = append(rows, []string{
				name,
				country(e),
				dateCell(e.Record().Start),
				dateCell(e.Record().End),
				strconv.Itoa(referenceCount(e)),
				Changes(e.Changes),
			})
		}
		doc.Table(md.TableSet{
			Header: []string{"Partner", "Country", "Start", "End", "Refs", "Differences"},
			Rows:   rows,
		})
	}
	return doc.Build()
}

// Title returns the display title of a city identifier.
func Title(city twins.CityID) string {
	if t := city.Title(); t != "" {
		return t
	}
	return city.String()
}

func country(e reconciler.Entry) string {
	for _, rec := range []*twins.Record{e.Article, e.Graph} {
		if rec != nil && rec.Country != "" {
			return rec.Country
		}
	}
	return ""
}

func partnerID(e reconciler.Entry) string {
	if e.Graph != nil {
		return e.Graph.PartnerID
	}
	return ""
}

func partnerURL(e reconciler.Entry) string {
	for _, rec := range []*twins.Record{e.Graph, e.Article} {
		if rec != nil && rec.PartnerURL != "" {
			return rec.PartnerURL
		}
	}
	return ""
}

// referenceCount returns the references of the side shown in the row; for
// matched partners that is the graph side.
func referenceCount(e reconciler.Entry) int {
	if rec := e.Record(); rec != nil {
		return len(rec.References)
	}
	return 0
}

func dateCell(d *twins.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
