// Package wikidata reads twinning statements from the Wikidata SPARQL
// query service.
package wikidata

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/agentstation/twinmap/internal/transport"
	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/logging"
	"github.com/agentstation/twinmap/pkg/query"
	"github.com/agentstation/twinmap/pkg/sparql"
	"github.com/agentstation/twinmap/pkg/twins"
)

// ResultsMediaType is the SPARQL JSON results media type.
const ResultsMediaType = "application/sparql-results+json"

// Fetcher sends query text to a SPARQL endpoint.
type Fetcher struct {
	client   *transport.Client
	endpoint string
	cache    bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithEndpoint overrides the SPARQL endpoint.
func WithEndpoint(endpoint string) Option {
	return func(f *Fetcher) {
		if endpoint != "" {
			f.endpoint = endpoint
		}
	}
}

// WithCache lets the endpoint serve cached results. By default every query
// is made unique and sent with Cache-Control: no-cache so fresh edits show up.
func WithCache(enabled bool) Option {
	return func(f *Fetcher) {
		f.cache = enabled
	}
}

// NewFetcher creates a Fetcher on top of client.
func NewFetcher(client *transport.Client, opts ...Option) *Fetcher {
	f := &Fetcher{client: client, endpoint: constants.WikidataSPARQLEndpoint}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Endpoint returns the configured endpoint.
func (f *Fetcher) Endpoint() string {
	return f.endpoint
}

// Fetch runs queryText and decodes the result rows. An undecodable body is
// a MALFORMED_RESPONSE fetch error.
func (f *Fetcher) Fetch(ctx context.Context, queryText string) (*sparql.RowSet, error) {
	header := http.Header{"Accept": {ResultsMediaType}}
	if !f.cache {
		queryText = "#" + uuid.NewString() + "\n" + queryText
		header.Set("Cache-Control", "no-cache")
	}

	resp, err := f.client.Get(ctx, string(twins.SourceGraph), f.endpoint, url.Values{"query": {queryText}}, header)
	if err != nil {
		return nil, err
	}

	rs, err := sparql.Decode(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &errors.FetchError{
			Kind:       errors.FetchMalformedResponse,
			Source:     string(twins.SourceGraph),
			Endpoint:   f.endpoint,
			StatusCode: resp.StatusCode,
			Detail:     err.Error(),
			Err:        err,
		}
	}

	logging.FromContext(ctx).Debug().
		Int("rows", rs.Len()).
		Strs("vars", rs.Vars).
		Msg("SPARQL query returned")
	return rs, nil
}

// Source adapts a Fetcher and a query Builder to the sources.Source interface.
type Source struct {
	fetcher *Fetcher
	builder *query.Builder
	kind    query.Kind
}

// NewSource creates the graph side of a comparison. kind must be one of the
// twinning kinds.
func NewSource(fetcher *Fetcher, builder *query.Builder, kind query.Kind) (*Source, error) {
	if kind == query.IdentifierLookup {
		return nil, &errors.ValidationError{Field: "kind", Value: kind.String(), Message: "must be a twinning query"}
	}
	return &Source{fetcher: fetcher, builder: builder, kind: kind}, nil
}

// ID implements sources.Source.
func (s *Source) ID() twins.Source {
	return twins.SourceGraph
}

// Rows implements sources.Source.
func (s *Source) Rows(ctx context.Context, city twins.CityID) (*sparql.RowSet, error) {
	text, err := s.builder.Build(city, s.kind)
	if err != nil {
		return nil, err
	}
	return s.fetcher.Fetch(ctx, text)
}

// Lookup resolves an article URL to the graph entity ids it is the sitelink
// of. An entity IRI resolves to itself.
func Lookup(ctx context.Context, fetcher *Fetcher, builder *query.Builder, city twins.CityID) ([]string, error) {
	if id, ok := city.EntityID(); ok {
		return []string{id}, nil
	}

	text, err := builder.Build(city, query.IdentifierLookup)
	if err != nil {
		return nil, err
	}
	rs, err := fetcher.Fetch(ctx, text)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, rs.Len())
	for _, row := range rs.Rows {
		iri, ok := row.Get("id").AsURL()
		if !ok {
			continue
		}
		if id, ok := twins.CityID(iri).EntityID(); ok {
			ids = append(ids, id)
		} else if i := strings.LastIndex(iri, "/"); i >= 0 {
			ids = append(ids, iri[i+1:])
		}
	}
	if len(ids) == 0 {
		return nil, errors.NewNotFoundError("entity", city.String())
	}
	return ids, nil
}
