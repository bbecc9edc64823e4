package twinmap_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/twinmap"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/normalize"
	"github.com/agentstation/twinmap/pkg/present"
	"github.com/agentstation/twinmap/pkg/query"
	"github.com/agentstation/twinmap/pkg/reconciler"
	"github.com/agentstation/twinmap/pkg/sources"
	"github.com/agentstation/twinmap/pkg/sparql"
	"github.com/agentstation/twinmap/pkg/twins"
)

const lowicz = "https://en.wikipedia.org/wiki/%C5%81owicz"

func graphRows() *sparql.RowSet {
	return &sparql.RowSet{
		Vars: []string{normalize.VarTargetID, normalize.VarTargetLabel, normalize.VarTargetURL, normalize.VarStartTime},
		Rows: []sparql.Row{
			{
				normalize.VarTargetID:    sparql.URLValue("http://www.wikidata.org/entity/Q8778"),
				normalize.VarTargetLabel: sparql.LangValue("Kamenz", "en"),
				normalize.VarTargetURL:   sparql.URLValue("https://en.wikipedia.org/wiki/Kamenz"),
				normalize.VarStartTime:   sparql.DateValue("1992-01-01T00:00:00Z"),
			},
			{
				normalize.VarTargetID:    sparql.URLValue("http://www.wikidata.org/entity/Q3033"),
				normalize.VarTargetLabel: sparql.LangValue("Göttingen", "en"),
			},
			// no resolvable name
			{normalize.VarTargetID: sparql.URLValue("http://www.wikidata.org/entity/Q1")},
		},
	}
}

func articleRows() *sparql.RowSet {
	return &sparql.RowSet{
		Vars: []string{normalize.VarTargetLabel, normalize.VarTargetURL, normalize.VarCountry, normalize.VarRefNode, normalize.VarReferenceURL},
		Rows: []sparql.Row{
			{
				normalize.VarTargetLabel: sparql.StringValue("Kamenz"),
				normalize.VarTargetURL:   sparql.URLValue("https://en.wikipedia.org/wiki/Kamenz"),
				normalize.VarCountry:     sparql.StringValue("Germany"),
			},
			{
				normalize.VarTargetLabel:  sparql.StringValue("Pont-Sainte-Maxence"),
				normalize.VarTargetURL:    sparql.URLValue("https://en.wikipedia.org/wiki/Pont-Sainte-Maxence"),
				normalize.VarCountry:      sparql.StringValue("France"),
				normalize.VarRefNode:      sparql.StringValue("cite_note-1"),
				normalize.VarReferenceURL: sparql.URLValue("https://www.lowicz.eu/"),
			},
		},
	}
}

func newClient(t *testing.T, opts ...twinmap.Option) twinmap.Client {
	t.Helper()
	opts = append([]twinmap.Option{
		twinmap.WithSources(
			sources.Static(twins.SourceGraph, graphRows()),
			sources.Static(twins.SourceArticle, articleRows()),
		),
	}, opts...)
	tm, err := twinmap.New(opts...)
	require.NoError(t, err)
	return tm
}

func TestCompare(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		tm := newClient(t, twinmap.WithParallelFetch(parallel))

		result, err := tm.Compare(context.Background(), lowicz)
		require.NoError(t, err)

		assert.Equal(t, twins.CityID(lowicz), result.City)
		assert.Equal(t, 3, result.Len())
		assert.Equal(t, 1, result.Stats.Matched)
		assert.Equal(t, 1, result.Stats.GraphOnly)
		assert.Equal(t, 1, result.Stats.ArticleOnly)
		assert.Equal(t, 1, result.Stats.GraphSkipped)
		assert.Equal(t, 0, result.Stats.ArticleSkipped)

		require.Len(t, result.Matched(), 1)
		assert.Equal(t, "Kamenz", result.Matched()[0].Name())
		require.Len(t, result.GraphOnly(), 1)
		assert.Equal(t, "Göttingen", result.GraphOnly()[0].Name())
		require.Len(t, result.ArticleOnly(), 1)
		assert.Equal(t, "Pont-Sainte-Maxence", result.ArticleOnly()[0].Name())
	}
}

func TestCompareRejectsInvalidIdentifier(t *testing.T) {
	var calls atomic.Int32
	counting := sources.Func{Side: twins.SourceGraph, Fetch: func(context.Context, twins.CityID) (*sparql.RowSet, error) {
		calls.Add(1)
		return graphRows(), nil
	}}
	tm := newClient(t, twinmap.WithGraphSource(counting))

	_, err := tm.Compare(context.Background(), "Łowicz")
	assert.True(t, errors.IsInvalidIdentifier(err))
	assert.Zero(t, calls.Load(), "nothing is fetched for an invalid identifier")
}

func TestCompareSourceFailures(t *testing.T) {
	unavailable := errors.NewFetchError(errors.FetchNetwork, "article", "connection refused", nil)
	failingArticle := sources.Func{Side: twins.SourceArticle, Fetch: func(context.Context, twins.CityID) (*sparql.RowSet, error) {
		return nil, unavailable
	}}

	var graphCalls atomic.Int32
	countingGraph := sources.Func{Side: twins.SourceGraph, Fetch: func(context.Context, twins.CityID) (*sparql.RowSet, error) {
		graphCalls.Add(1)
		return graphRows(), nil
	}}

	t.Run("one side", func(t *testing.T) {
		tm := newClient(t, twinmap.WithSources(countingGraph, failingArticle))
		result, err := tm.Compare(context.Background(), lowicz)
		assert.Nil(t, result)

		var se *errors.SourceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "article", se.Source)
		assert.True(t, errors.IsSourceUnavailable(err))
		assert.Equal(t, int32(1), graphCalls.Load(), "the graph is still fetched")
	})

	t.Run("both sides", func(t *testing.T) {
		failingGraph := sources.Func{Side: twins.SourceGraph, Fetch: func(context.Context, twins.CityID) (*sparql.RowSet, error) {
			return nil, errors.NewFetchError(errors.FetchMalformedResponse, "graph", "truncated body", nil)
		}}
		tm := newClient(t, twinmap.WithSources(failingGraph, failingArticle), twinmap.WithParallelFetch(true))
		_, err := tm.Compare(context.Background(), lowicz)
		require.Error(t, err)
		assert.True(t, errors.IsMalformed(err))
		assert.True(t, errors.IsSourceUnavailable(err))
		assert.Contains(t, err.Error(), "graph source failed")
		assert.Contains(t, err.Error(), "article source failed")
	})
}

func TestCompareDiacriticFolding(t *testing.T) {
	article := &sparql.RowSet{Rows: []sparql.Row{{normalize.VarTargetLabel: sparql.StringValue("Gottingen")}}}

	exact := newClient(t, twinmap.WithArticleSource(sources.Static(twins.SourceArticle, article)))
	result, err := exact.Compare(context.Background(), lowicz)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.Matched)

	folded := newClient(t,
		twinmap.WithArticleSource(sources.Static(twins.SourceArticle, article)),
		twinmap.WithDiacriticFolding(true),
	)
	result, err = folded.Compare(context.Background(), lowicz)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.Matched)
}

func TestHooks(t *testing.T) {
	tm := newClient(t)

	var mu sync.Mutex
	seen := map[reconciler.Status][]string{}
	record := func(status reconciler.Status) twinmap.EntryHook {
		return func(city string, entry reconciler.Entry) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, lowicz, city)
			seen[status] = append(seen[status], entry.Name())
		}
	}
	tm.OnMatched(record(reconciler.StatusMatched))
	tm.OnGraphOnly(record(reconciler.StatusGraphOnly))
	tm.OnArticleOnly(record(reconciler.StatusArticleOnly))

	_, err := tm.Compare(context.Background(), lowicz)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kamenz"}, seen[reconciler.StatusMatched])
	assert.Equal(t, []string{"Göttingen"}, seen[reconciler.StatusGraphOnly])
	assert.Equal(t, []string{"Pont-Sainte-Maxence"}, seen[reconciler.StatusArticleOnly])
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  twinmap.Option
	}{
		{"swapped graph source", twinmap.WithGraphSource(sources.Static(twins.SourceArticle, nil))},
		{"nil article source", twinmap.WithArticleSource(nil)},
		{"relative endpoint", twinmap.WithSPARQLEndpoint("query.wikidata.org")},
		{"empty language", twinmap.WithLanguage(" ")},
		{"lookup kind", twinmap.WithQueryKind(query.IdentifierLookup)},
		{"short timeout", twinmap.WithTimeout(1)},
		{"no attempts", twinmap.WithRetry(0, 0)},
		{"negative rate", twinmap.WithRateLimit(-1)},
		{"empty user agent", twinmap.WithUserAgent("")},
		{"nil writer", twinmap.WithGraphWriter(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := twinmap.New(tt.opt)
			assert.True(t, errors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestQuery(t *testing.T) {
	tm := newClient(t)

	text, err := tm.Query(lowicz, query.TwinningBasic)
	require.NoError(t, err)
	assert.Contains(t, text, "<"+lowicz+">")

	_, err = tm.Query("Łowicz", query.TwinningBasic)
	assert.True(t, errors.IsInvalidIdentifier(err))
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("query"), "schema:about")
		_, _ = io.WriteString(w, `{"head":{"vars":["id"]},"results":{"bindings":[
			{"id":{"type":"uri","value":"http://www.wikidata.org/entity/Q622395"}}]}}`)
	}))
	t.Cleanup(srv.Close)

	tm := newClient(t, twinmap.WithSPARQLEndpoint(srv.URL), twinmap.WithRateLimit(0))

	ids, err := tm.Lookup(context.Background(), lowicz)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q622395"}, ids)

	ids, err = tm.Lookup(context.Background(), "http://www.wikidata.org/entity/Q8778")
	require.NoError(t, err)
	assert.Equal(t, []string{"Q8778"}, ids)
}

type countingTransport struct {
	requests atomic.Int32
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.requests.Add(1)
	return http.DefaultTransport.RoundTrip(r)
}

func TestHTTPClientLeftUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"head":{"vars":["id"]},"results":{"bindings":[
			{"id":{"type":"uri","value":"http://www.wikidata.org/entity/Q622395"}}]}}`)
	}))
	t.Cleanup(srv.Close)

	rt := &countingTransport{}
	hc := &http.Client{Transport: rt}
	tm := newClient(t,
		twinmap.WithHTTPClient(hc),
		twinmap.WithTimeout(20*time.Second),
		twinmap.WithSPARQLEndpoint(srv.URL),
		twinmap.WithRateLimit(0),
	)

	_, err := tm.Lookup(context.Background(), lowicz)
	require.NoError(t, err)
	assert.Equal(t, int32(1), rt.requests.Load(), "requests go through the supplied transport")
	assert.Zero(t, hc.Timeout)
	assert.Nil(t, hc.Jar)
}

// writer fakes the graph write API.
type writer struct {
	mu    sync.Mutex
	added []twins.Record
}

func (w *writer) Login(context.Context, string, string) error { return nil }

func (w *writer) ResolveEntity(_ context.Context, city twins.CityID) (string, error) {
	switch city.Title() {
	case "Łowicz":
		return "Q622395", nil
	case "Pont-Sainte-Maxence":
		return "Q661599", nil
	}
	return "", errors.NewNotFoundError("entity", city.String())
}

func (w *writer) Label(_ context.Context, id string) (string, error) { return id, nil }

func (w *writer) AddTwin(_ context.Context, subject, partnerID string, partner twins.Record) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.added = append(w.added, partner)
	return subject + "$1", nil
}

func TestPublish(t *testing.T) {
	fake := &writer{}
	tm := newClient(t,
		twinmap.WithGraphWriter(fake),
		twinmap.WithCredentials(present.Credentials{Username: "Bot@twinmap", Password: "secret"}),
	)

	res, err := tm.Publish(context.Background(), lowicz, "Pont-Sainte-Maxence")
	require.NoError(t, err)
	assert.Equal(t, "Q622395", res.Subject)
	assert.Equal(t, "Q661599", res.Partner)
	assert.Equal(t, 1, res.References)
	require.Len(t, fake.added, 1)
	assert.Equal(t, "https://www.lowicz.eu/", fake.added[0].References[0].URL)

	_, err = tm.Publish(context.Background(), lowicz, "Kamenz")
	assert.True(t, errors.IsValidationError(err), "matched partners are not published")

	_, err = tm.Publish(context.Background(), lowicz, "Göttingen")
	assert.True(t, errors.IsValidationError(err), "graph-only partners are not published")

	_, err = tm.Publish(context.Background(), lowicz, "Atlantis")
	assert.True(t, errors.IsNotFound(err))
	assert.Len(t, fake.added, 1)
}

func TestPublishRequiresCredentials(t *testing.T) {
	fake := &writer{}
	tm := newClient(t, twinmap.WithGraphWriter(fake))

	_, err := tm.Publish(context.Background(), lowicz, "Pont-Sainte-Maxence")
	assert.ErrorIs(t, err, errors.ErrCredentialsRequired)
	assert.Empty(t, fake.added)
}
