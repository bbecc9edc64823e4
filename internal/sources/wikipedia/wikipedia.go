// Package wikipedia reads the twin-city list of a rendered encyclopedia
// article and exposes it as result rows shaped like the graph rows.
package wikipedia

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/agentstation/twinmap/internal/transport"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/logging"
	"github.com/agentstation/twinmap/pkg/sparql"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Resolver maps a city identifier to the article URL to read. It is used
// when the city is given as a graph entity.
type Resolver func(ctx context.Context, city twins.CityID) (twins.CityID, error)

// Fetcher downloads rendered articles.
type Fetcher struct {
	client   *transport.Client
	resolver Resolver
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithResolver sets the function used to turn entity identifiers into
// article URLs.
func WithResolver(r Resolver) Option {
	return func(f *Fetcher) {
		f.resolver = r
	}
}

// NewFetcher creates a Fetcher on top of client.
func NewFetcher(client *transport.Client, opts ...Option) *Fetcher {
	f := &Fetcher{client: client}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ID implements sources.Source.
func (f *Fetcher) ID() twins.Source {
	return twins.SourceArticle
}

// Rows implements sources.Source.
func (f *Fetcher) Rows(ctx context.Context, city twins.CityID) (*sparql.RowSet, error) {
	return f.Fetch(ctx, city)
}

// Fetch downloads the article of city and extracts its twin-city rows. An
// article without a twinning section yields an empty row set.
func (f *Fetcher) Fetch(ctx context.Context, city twins.CityID) (*sparql.RowSet, error) {
	article, err := f.articleURL(ctx, city)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(string(article))
	if err != nil {
		return nil, errors.NewInvalidIdentifierError(string(article), err.Error())
	}

	resp, err := f.client.Get(ctx, string(twins.SourceArticle), string(article),
		url.Values{"action": {"render"}}, http.Header{"Accept": {"text/html"}})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &errors.FetchError{
			Kind:       errors.FetchMalformedResponse,
			Source:     string(twins.SourceArticle),
			Endpoint:   string(article),
			StatusCode: resp.StatusCode,
			Detail:     "failed to parse HTML",
			Err:        err,
		}
	}

	rs := Extract(doc, base)
	logging.FromContext(ctx).Debug().
		Str("article", string(article)).
		Int("rows", rs.Len()).
		Msg("Article twin list extracted")
	return rs, nil
}

func (f *Fetcher) articleURL(ctx context.Context, city twins.CityID) (twins.CityID, error) {
	if _, ok := city.ArticleHost(); ok {
		return city, nil
	}
	if !city.IsEntity() || f.resolver == nil {
		return "", errors.NewInvalidIdentifierError(string(city), "no article URL for identifier")
	}
	article, err := f.resolver(ctx, city)
	if err != nil {
		return "", err
	}
	if _, ok := article.ArticleHost(); !ok {
		return "", errors.NewInvalidIdentifierError(string(article), "resolved identifier is not an article URL")
	}
	return article, nil
}
