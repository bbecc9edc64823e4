package normalize_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/twinmap/pkg/normalize"
	"github.com/agentstation/twinmap/pkg/sparql"
	"github.com/agentstation/twinmap/pkg/twins"
)

func graphRow(id, label string, extra map[string]sparql.Value) sparql.Row {
	row := sparql.Row{
		normalize.VarTargetID:    sparql.URLValue("http://www.wikidata.org/entity/" + id),
		normalize.VarTargetLabel: sparql.LangValue(label, "en"),
	}
	for k, v := range extra {
		row[k] = v
	}
	return row
}

func TestRowMissingNameIsSkipped(t *testing.T) {
	n := normalize.New()

	tests := []struct {
		name string
		row  sparql.Row
	}{
		{name: "empty row", row: sparql.Row{}},
		{name: "blank label", row: sparql.Row{normalize.VarTargetLabel: sparql.StringValue("   ")}},
		{name: "label is bare entity id", row: graphRow("Q1000", "Q1000", nil)},
		{name: "only reference fields", row: sparql.Row{
			normalize.VarRefNode:       sparql.StringValue("refnode1"),
			normalize.VarReferenceURL:  sparql.URLValue("https://example.org"),
			normalize.VarStartTime:     sparql.DateValue("1992-01-01"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := n.Row(tt.row, twins.SourceGraph)
			assert.False(t, ok)
			assert.Equal(t, twins.Record{}, rec)
		})
	}
}

func TestRowNameFallsBackToArticleTitle(t *testing.T) {
	row := graphRow("Q1000", "Q1000", map[string]sparql.Value{
		normalize.VarTargetURL: sparql.URLValue("https://en.wikipedia.org/wiki/Frankfurt_(Oder)"),
	})

	rec, ok := normalize.New().Row(row, twins.SourceGraph)
	require.True(t, ok)
	assert.Equal(t, "Frankfurt (Oder)", rec.PartnerName)
	assert.Equal(t, "frankfurt oder", rec.Key)
	assert.Equal(t, "Q1000", rec.PartnerID)
}

func TestRowArticleSourceHasNoPartnerID(t *testing.T) {
	row := graphRow("Q6474", "Kamenz", nil)
	rec, ok := normalize.New().Row(row, twins.SourceArticle)
	require.True(t, ok)
	assert.Empty(t, rec.PartnerID)
	assert.Equal(t, twins.SourceArticle, rec.Source)
}

func TestRowsMergeReferenceNode(t *testing.T) {
	start := sparql.DateValue("1992-01-01")
	rs := &sparql.RowSet{Rows: []sparql.Row{
		graphRow("Q6474", "Kamenz", map[string]sparql.Value{
			normalize.VarStartTime: start,
			normalize.VarRefNode:   sparql.URLValue("http://www.wikidata.org/reference/refnode1"),
			normalize.VarRetrieved: sparql.DateValue("1992-01-01T00:00:00Z"),
		}),
		graphRow("Q6474", "Kamenz", map[string]sparql.Value{
			normalize.VarStartTime:    start,
			normalize.VarRefNode:      sparql.URLValue("http://www.wikidata.org/reference/refnode1"),
			normalize.VarReferenceURL: sparql.URLValue("https://www.kamenz.de/partnerstaedte"),
		}),
	}}

	batch := normalize.Rows(rs, twins.SourceGraph)

	require.Len(t, batch.Records, 1)
	rec := batch.Records[0]
	assert.Equal(t, "Kamenz", rec.PartnerName)
	require.NotNil(t, rec.Start)
	assert.Equal(t, twins.Date{Year: 1992, Month: time.January, Day: 1}, *rec.Start)
	assert.Nil(t, rec.End)

	require.Len(t, rec.References, 1)
	ref := rec.References[0]
	require.NotNil(t, ref.Retrieved)
	assert.Equal(t, "1992-01-01", ref.Retrieved.String())
	assert.Equal(t, "https://www.kamenz.de/partnerstaedte", ref.URL)
	assert.Empty(t, ref.Publisher)
	assert.Empty(t, ref.Title)

	assert.Equal(t, 1, batch.Stats.RowsMerged)
	assert.Equal(t, 1, batch.Stats.ReferencesMerged)
}

func TestRowsKeepDistinctReferencesInOrder(t *testing.T) {
	rs := &sparql.RowSet{Rows: []sparql.Row{
		graphRow("Q6474", "Kamenz", map[string]sparql.Value{
			normalize.VarRefNode:      sparql.StringValue("r2"),
			normalize.VarReferenceURL: sparql.URLValue("https://second.example"),
		}),
		graphRow("Q6474", "Kamenz", map[string]sparql.Value{
			normalize.VarRefNode:      sparql.StringValue("r1"),
			normalize.VarReferenceURL: sparql.URLValue("https://first.example"),
		}),
		graphRow("Q6474", "Kamenz", map[string]sparql.Value{
			normalize.VarRefNode:     sparql.StringValue("r2"),
			normalize.VarReferenceName: sparql.LangValue("Partner towns", "en"),
		}),
		// No reference node: a reference of its own.
		graphRow("Q6474", "Kamenz", map[string]sparql.Value{
			normalize.VarReferencePublisher: sparql.StringValue("Town hall"),
		}),
		// No reference fields at all: no reference.
		graphRow("Q6474", "Kamenz", nil),
	}}

	batch := normalize.Rows(rs, twins.SourceGraph)
	require.Len(t, batch.Records, 1)
	refs := batch.Records[0].References
	require.Len(t, refs, 3)
	assert.Equal(t, "https://second.example", refs[0].URL)
	assert.Equal(t, "Partner towns", refs[0].Title)
	assert.Equal(t, "https://first.example", refs[1].URL)
	assert.Equal(t, "Town hall", refs[2].Publisher)
}

func TestRowsDropUnparsableDates(t *testing.T) {
	rs := &sparql.RowSet{Rows: []sparql.Row{
		graphRow("Q1", "Alpha", map[string]sparql.Value{
			normalize.VarStartTime: sparql.DateValue("around 1990"),
			normalize.VarEndTime:   sparql.URLValue("http://www.wikidata.org/.well-known/genid/abc"),
		}),
	}}

	batch := normalize.Rows(rs, twins.SourceGraph)
	require.Len(t, batch.Records, 1)
	assert.Nil(t, batch.Records[0].Start)
	assert.Nil(t, batch.Records[0].End)
	assert.Equal(t, 2, batch.Stats.DatesDropped)
}

func TestRowsOrderAndSkipCount(t *testing.T) {
	rs := &sparql.RowSet{Rows: []sparql.Row{
		graphRow("Q3", "Zwickau", nil),
		graphRow("Q9", "Q9", nil),
		graphRow("Q1", "Aachen", nil),
		graphRow("Q2", "Löbau", nil),
		{},
	}}

	batch := normalize.Rows(rs, twins.SourceGraph)

	keys := make([]string, 0, len(batch.Records))
	for _, rec := range batch.Records {
		keys = append(keys, rec.Key)
	}
	assert.Equal(t, []string{"aachen", "löbau", "zwickau"}, keys)
	assert.Equal(t, 2, batch.Skipped)
	assert.Equal(t, 5, batch.Stats.Rows)
	assert.Equal(t, 3, batch.Stats.Records)
	assert.Equal(t, twins.SourceGraph, batch.Source)
}

func TestRowsHomonymsStayApartInGraph(t *testing.T) {
	rs := &sparql.RowSet{Rows: []sparql.Row{
		graphRow("Q1794", "Frankfurt", nil),
		graphRow("Q4024", "Frankfurt", nil),
	}}
	batch := normalize.Rows(rs, twins.SourceGraph)
	require.Len(t, batch.Records, 2)
	assert.Equal(t, "Q1794", batch.Records[0].PartnerID)
	assert.Equal(t, "Q4024", batch.Records[1].PartnerID)
}

func TestRowsArticleMergesByKey(t *testing.T) {
	rs := &sparql.RowSet{Rows: []sparql.Row{
		{
			normalize.VarTargetLabel: sparql.StringValue("Göttingen"),
			normalize.VarTargetURL:   sparql.URLValue("https://en.wikipedia.org/wiki/G%C3%B6ttingen"),
			normalize.VarRefNode:     sparql.StringValue("cite_note-3"),
			normalize.VarRetrieved:   sparql.StringValue("2021-03-01 2023-07-15"),
		},
		{
			normalize.VarTargetLabel: sparql.StringValue("GÖTTINGEN"),
			normalize.VarCountry:     sparql.StringValue("Germany"),
			normalize.VarRefNode:     sparql.StringValue("cite_note-3"),
			normalize.VarReferenceURL: sparql.URLValue("https://www.goettingen.de"),
		},
	}}

	batch := normalize.Rows(rs, twins.SourceArticle)
	require.Len(t, batch.Records, 1)
	rec := batch.Records[0]
	assert.Equal(t, "Göttingen", rec.PartnerName)
	assert.Equal(t, "Germany", rec.Country)
	require.Len(t, rec.References, 1)
	assert.Equal(t, "2023-07-15", rec.References[0].Retrieved.String())
	assert.Equal(t, "https://www.goettingen.de", rec.References[0].URL)
}

func TestRowsNilSet(t *testing.T) {
	batch := normalize.Rows(nil, twins.SourceArticle)
	assert.NotNil(t, batch.Records)
	assert.Empty(t, batch.Records)
	assert.Zero(t, batch.Skipped)
}

func TestKey(t *testing.T) {
	tests := []struct {
		a, b  string
		equal bool
	}{
		{"Kamenz", "kamenz", true},
		{"  Kamenz\t", "KAMENZ", true},
		{"Saint-Étienne", "Saint Étienne", true},
		{"St. Petersburg", "St Petersburg", true},
		{"L'Aquila", "L’Aquila", true},
		{"Frankfurt (Oder)", "Frankfurt Oder", true},
		{"Göttingen", "Gottingen", false},
		{"Łowicz", "Lowicz", false},
		// NFC and NFD spellings of the same name.
		{"Göttingen", "Göttingen", true},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.equal, normalize.Key(tt.a) == normalize.Key(tt.b))
		})
	}

	assert.Equal(t, "kamenz", normalize.Key(" Kamenz "))
	assert.Equal(t, "łowicz", normalize.Key("Łowicz"))
	assert.Empty(t, normalize.Key(" - "))
}

func TestFoldedKey(t *testing.T) {
	assert.Equal(t, normalize.FoldedKey("Göttingen"), normalize.FoldedKey("Gottingen"))
	assert.Equal(t, "lowicz", normalize.FoldedKey("Łowicz"))
	assert.Equal(t, "kobenhavn", normalize.FoldedKey("København"))
	assert.Equal(t, "strasse", normalize.FoldedKey("Straße"))

	n := normalize.New(normalize.WithDiacriticFolding(true))
	assert.Equal(t, n.Key("Zürich"), n.Key("Zurich"))

	exact := normalize.New(normalize.WithDiacriticFolding(false))
	assert.NotEqual(t, exact.Key("Zürich"), exact.Key("Zurich"))
}

func TestWithKeyFunc(t *testing.T) {
	n := normalize.New(normalize.WithKeyFunc(func(s string) string { return "x" + s }))
	rec, ok := n.Row(graphRow("Q1", "A", nil), twins.SourceGraph)
	require.True(t, ok)
	assert.Equal(t, "xA", rec.Key)
	assert.Equal(t, "xB", n.KeyFunc()("B"))
}
