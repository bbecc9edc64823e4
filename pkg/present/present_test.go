package present_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/present"
	"github.com/agentstation/twinmap/pkg/reconciler"
	"github.com/agentstation/twinmap/pkg/twins"
)

func lowiczResult(t *testing.T) *reconciler.Result {
	t.Helper()
	start := twins.Date{Year: 1992}
	graph := []twins.Record{
		{Source: twins.SourceGraph, PartnerName: "Kamenz", PartnerID: "Q8778", PartnerURL: "https://en.wikipedia.org/wiki/Kamenz", Start: &start},
		{Source: twins.SourceGraph, PartnerName: "Göttingen", PartnerID: "Q3033"},
	}
	article := []twins.Record{
		{Source: twins.SourceArticle, PartnerName: "Kamenz", PartnerURL: "https://en.wikipedia.org/wiki/Kamenz", Country: "Germany"},
		{Source: twins.SourceArticle, PartnerName: "Pont-Sainte-Maxence", PartnerURL: "https://en.wikipedia.org/wiki/Pont-Sainte-Maxence", Country: "France",
			References: []twins.Reference{{URL: "https://www.lowicz.eu/"}}},
	}
	result := reconciler.Reconcile(graph, article)
	result.City = "https://en.wikipedia.org/wiki/%C5%81owicz"
	return result
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, present.Render(&buf, lowiczResult(t), present.FormatTable))

	out := buf.String()
	assert.Contains(t, out, "Twin cities of Łowicz")
	assert.Contains(t, out, "✓ Matched (1)")
	assert.Contains(t, out, "! Graph Only (1)")
	assert.Contains(t, out, "+ Article Only (1)")
	assert.Contains(t, out, "Kamenz")
	assert.Contains(t, out, "Göttingen")
	assert.Contains(t, out, "Pont-Sainte-Maxence")
	assert.Contains(t, out, "3 partners: 1 matched, 1 graph only, 1 article only")
	assert.NotContains(t, out, "Q3033", "ids are only in the wide layout")

	assert.Less(t, strings.Index(out, "Matched"), strings.Index(out, "Graph Only"))
	assert.Less(t, strings.Index(out, "Graph Only"), strings.Index(out, "Article Only"))
}

func TestRenderWide(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, present.Render(&buf, lowiczResult(t), present.FormatWide))

	out := buf.String()
	assert.Contains(t, out, "Q3033")
	assert.Contains(t, out, "start: 1992 -> -")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, present.Render(&buf, reconciler.Reconcile(nil, nil), present.FormatTable))
	assert.Equal(t, "No twin cities found in either source.\n", buf.String())
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, present.Render(&buf, lowiczResult(t), present.FormatJSON))

	var decoded struct {
		Entries []struct {
			Key    string `json:"key"`
			Status string `json:"status"`
		} `json:"entries"`
		Stats reconciler.ResultStatistics `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Entries, 3)
	assert.Equal(t, 1, decoded.Stats.Matched)
	assert.Equal(t, 1, decoded.Stats.GraphOnly)
	assert.Equal(t, 1, decoded.Stats.ArticleOnly)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, present.Render(&buf, lowiczResult(t), present.FormatYAML))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "entries")
	assert.Contains(t, buf.String(), "status: ARTICLE_ONLY")
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, present.Render(&buf, lowiczResult(t), present.FormatMarkdown))

	out := buf.String()
	assert.Contains(t, out, "# Twin cities of Łowicz")
	assert.Contains(t, out, "## Matched (1)")
	assert.Contains(t, out, "## Article Only (1)")
	assert.Contains(t, out, "[Kamenz](https://en.wikipedia.org/wiki/Kamenz)")
}

func TestRenderErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, errors.IsValidationError(present.Render(&buf, nil, present.FormatTable)))
	assert.True(t, errors.IsValidationError(present.Render(&buf, lowiczResult(t), "xml")))
}

func TestParseFormat(t *testing.T) {
	for _, f := range present.Formats() {
		got, err := present.ParseFormat(strings.ToUpper(string(f)))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	got, err := present.ParseFormat("md")
	require.NoError(t, err)
	assert.Equal(t, present.FormatMarkdown, got)

	_, err = present.ParseFormat("csv")
	assert.True(t, errors.IsValidationError(err))

	assert.Equal(t, present.FormatYAML, present.DetectFormat("YAML"))
}

func TestLabelAndSymbol(t *testing.T) {
	assert.Equal(t, "Graph Only", present.Label(reconciler.StatusGraphOnly))
	assert.Equal(t, "Article Only", present.Label(reconciler.StatusArticleOnly))
	assert.Equal(t, present.SymbolMatched, present.Symbol(reconciler.StatusMatched))
	assert.Equal(t, present.SymbolUnknown, present.Symbol("OTHER"))
}

func TestFormatterTableData(t *testing.T) {
	var buf bytes.Buffer
	data := present.Data{Headers: []string{"Entity"}, Rows: [][]string{{"Q14819"}}}
	require.NoError(t, present.NewFormatter(present.FormatTable).Format(&buf, data))
	assert.Contains(t, buf.String(), "Q14819")

	buf.Reset()
	require.NoError(t, present.NewFormatter(present.FormatTable).Format(&buf, []string{"Q1"}))
	assert.JSONEq(t, `["Q1"]`, buf.String())
}

// fakeWriter records calls instead of editing the graph.
type fakeWriter struct {
	logins  int
	loginFn func(user, pass string) error
	ids     map[twins.CityID]string
	edits   []string
}

func (f *fakeWriter) Login(_ context.Context, user, pass string) error {
	f.logins++
	if f.loginFn != nil {
		return f.loginFn(user, pass)
	}
	return nil
}

func (f *fakeWriter) ResolveEntity(_ context.Context, city twins.CityID) (string, error) {
	if id, ok := f.ids[city]; ok {
		return id, nil
	}
	return "", errors.NewNotFoundError("entity", city.String())
}

func (f *fakeWriter) Label(_ context.Context, id string) (string, error) {
	return "Label of " + id, nil
}

func (f *fakeWriter) AddTwin(_ context.Context, subject, partnerID string, partner twins.Record) (string, error) {
	f.edits = append(f.edits, fmt.Sprintf("%s->%s (%s)", subject, partnerID, partner.PartnerName))
	return subject + "$" + partnerID, nil
}

func newWriter() *fakeWriter {
	return &fakeWriter{ids: map[twins.CityID]string{
		"https://en.wikipedia.org/wiki/%C5%81owicz":          "Q622395",
		"https://en.wikipedia.org/wiki/Pont-Sainte-Maxence": "Q661599",
	}}
}

var pont = twins.Record{
	Source:      twins.SourceArticle,
	PartnerName: "Pont-Sainte-Maxence",
	PartnerURL:  "https://en.wikipedia.org/wiki/Pont-Sainte-Maxence",
	References:  []twins.Reference{{URL: "https://www.lowicz.eu/"}},
}

func TestSubmit(t *testing.T) {
	writer := newWriter()
	action, err := present.NewSubmitAction(present.Credentials{Username: "Bot@twinmap", Password: "secret"}, writer)
	require.NoError(t, err)

	res, err := action.Submit(context.Background(), "https://en.wikipedia.org/wiki/%C5%81owicz", pont)
	require.NoError(t, err)
	assert.Equal(t, "Q622395", res.Subject)
	assert.Equal(t, "Q661599", res.Partner)
	assert.Equal(t, "Q622395$Q661599", res.StatementID)
	assert.Equal(t, 1, res.References)
	assert.Empty(t, res.ReverseID)
	assert.Equal(t, []string{"Q622395->Q661599 (Pont-Sainte-Maxence)"}, writer.edits)

	_, err = action.Submit(context.Background(), "https://en.wikipedia.org/wiki/%C5%81owicz", pont)
	require.NoError(t, err)
	assert.Equal(t, 1, writer.logins, "the session is reused")
}

func TestSubmitTwoSided(t *testing.T) {
	writer := newWriter()
	action, err := present.NewSubmitAction(present.Credentials{Token: "oauth"}, writer, present.WithTwoSided(true))
	require.NoError(t, err)

	res, err := action.Submit(context.Background(), "https://en.wikipedia.org/wiki/%C5%81owicz", pont)
	require.NoError(t, err)
	assert.Equal(t, "Q661599$Q622395", res.ReverseID)
	assert.Equal(t, 0, writer.logins, "tokens need no login")
	assert.Equal(t, []string{
		"Q622395->Q661599 (Pont-Sainte-Maxence)",
		"Q661599->Q622395 (Label of Q622395)",
	}, writer.edits)
}

func TestSubmitRejects(t *testing.T) {
	writer := newWriter()
	action, err := present.NewSubmitAction(present.Credentials{Username: "Bot@twinmap", Password: "secret"}, writer)
	require.NoError(t, err)
	ctx := context.Background()

	graphRecord := pont
	graphRecord.Source = twins.SourceGraph
	_, err = action.Submit(ctx, "https://en.wikipedia.org/wiki/%C5%81owicz", graphRecord)
	assert.True(t, errors.IsValidationError(err))

	noURL := pont
	noURL.PartnerURL = ""
	_, err = action.Submit(ctx, "https://en.wikipedia.org/wiki/%C5%81owicz", noURL)
	assert.True(t, errors.IsValidationError(err))

	_, err = action.Submit(ctx, "https://en.wikipedia.org/wiki/Atlantis", pont)
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, writer.edits)

	fresh := newWriter()
	unauthenticated, err := present.NewSubmitAction(present.Credentials{}, fresh)
	require.NoError(t, err)
	_, err = unauthenticated.Submit(ctx, "https://en.wikipedia.org/wiki/%C5%81owicz", pont)
	assert.ErrorIs(t, err, errors.ErrCredentialsRequired)
	assert.Equal(t, 0, fresh.logins)

	_, err = present.NewSubmitAction(present.Credentials{}, nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestSubmitRetriesFailedLogin(t *testing.T) {
	writer := newWriter()
	writer.loginFn = func(_, _ string) error {
		if writer.logins == 1 {
			return errors.NewFetchError(errors.FetchNetwork, "wikibase", "connection reset", nil)
		}
		return nil
	}
	action, err := present.NewSubmitAction(present.Credentials{Username: "Bot@twinmap", Password: "secret"}, writer)
	require.NoError(t, err)
	subject := twins.CityID("https://en.wikipedia.org/wiki/%C5%81owicz")

	_, err = action.Submit(context.Background(), subject, pont)
	assert.True(t, errors.IsSourceUnavailable(err))
	assert.Empty(t, writer.edits)

	ctx, cancel := context.WithCancel(context.Background())
	res, err := action.Submit(ctx, subject, pont)
	require.NoError(t, err)
	assert.Equal(t, "Q622395$Q661599", res.StatementID)
	assert.Equal(t, 2, writer.logins)
	cancel()

	_, err = action.Submit(context.Background(), subject, pont)
	require.NoError(t, err)
	assert.Equal(t, 2, writer.logins, "the session is reused after a successful login")
}
