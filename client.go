// Package twinmap compares the twin cities recorded for a city in the
// Wikidata graph with the ones listed in its Wikipedia article, and can
// publish partners the graph is missing.
//
// Every partner ends up in exactly one of three groups: MATCHED when both
// sources list it, GRAPH_ONLY when only the graph does and ARTICLE_ONLY
// when only the article does.
//
// Example usage:
//
//	tm, err := twinmap.New(twinmap.WithParallelFetch(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := tm.Compare(ctx, "https://en.wikipedia.org/wiki/Łowicz")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
//
//	for _, entry := range result.ArticleOnly() {
//	    fmt.Printf("Missing from the graph: %s\n", entry.Name())
//	}
package twinmap

import (
	"context"

	"github.com/agentstation/twinmap/internal/retry"
	"github.com/agentstation/twinmap/internal/sources/wikibase"
	"github.com/agentstation/twinmap/internal/sources/wikidata"
	"github.com/agentstation/twinmap/internal/sources/wikipedia"
	"github.com/agentstation/twinmap/internal/transport"
	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/normalize"
	"github.com/agentstation/twinmap/pkg/present"
	"github.com/agentstation/twinmap/pkg/query"
	"github.com/agentstation/twinmap/pkg/reconciler"
	"github.com/agentstation/twinmap/pkg/sources"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Comparer reconciles the two sources for one city.
type Comparer interface {
	Compare(ctx context.Context, city string) (*reconciler.Result, error)
}

// Lookuper resolves identifiers and exposes the queries sent to the graph.
type Lookuper interface {
	// Lookup returns the graph entity ids of city.
	Lookup(ctx context.Context, city string) ([]string, error)
	// Query returns the query text of kind for city without sending it.
	Query(city string, kind query.Kind) (string, error)
}

// Publisher writes article-only partners back to the graph.
type Publisher interface {
	Publish(ctx context.Context, city string, partner string) (*present.SubmitResult, error)
}

// Client compares twin-city lists and publishes missing partners. It only
// holds immutable configuration and is safe for concurrent use.
type Client interface {
	Comparer
	Lookuper
	Publisher
	Hooks
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options

	builder    *query.Builder
	normalizer *normalize.Normalizer
	reconciler reconciler.Reconciler

	graph   sources.Source
	article sources.Source

	fetcher   *wikidata.Fetcher
	api       *wikibase.Client
	submitter present.Submitter

	hooks *hooks
}

// New creates a Client. Without injected sources it reads the public
// Wikidata query service and Wikipedia.
func New(opts ...Option) (Client, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	c := &client{options: o, hooks: newHooks()}

	if c.builder, err = query.NewBuilder(query.WithLanguage(o.language)); err != nil {
		return nil, err
	}

	c.normalizer = normalize.New(normalize.WithDiacriticFolding(o.foldDiacritics))

	if c.reconciler, err = reconciler.New(
		reconciler.WithKeyFunc(c.normalizer.KeyFunc()),
		reconciler.WithFieldDiff(o.fieldDiff),
	); err != nil {
		return nil, err
	}

	if err := c.wire(); err != nil {
		return nil, err
	}
	return c, nil
}

// wire creates the remote clients the configured sources need.
func (c *client) wire() error {
	o := c.options
	c.graph, c.article = o.graph, o.article

	read, err := transport.New(c.transportOptions()...)
	if err != nil {
		return err
	}

	c.fetcher = wikidata.NewFetcher(read,
		wikidata.WithEndpoint(o.sparqlEndpoint),
		wikidata.WithCache(o.cache),
	)
	c.api = wikibase.NewClient(read,
		wikibase.WithEndpoint(o.apiEndpoint),
		wikibase.WithLanguage(o.language),
		wikibase.WithResolver(func(ctx context.Context, city twins.CityID) ([]string, error) {
			return wikidata.Lookup(ctx, c.fetcher, c.builder, city)
		}),
	)

	if c.graph == nil {
		src, err := wikidata.NewSource(c.fetcher, c.builder, o.queryKind)
		if err != nil {
			return err
		}
		c.graph = src
	}
	if c.article == nil {
		host := c.builder.ArticleHost()
		c.article = wikipedia.NewFetcher(read, wikipedia.WithResolver(
			func(ctx context.Context, city twins.CityID) (twins.CityID, error) {
				return c.api.ArticleURL(ctx, city, host)
			}))
	}

	if c.graph.ID() != twins.SourceGraph || c.article.ID() != twins.SourceArticle {
		return &errors.ValidationError{Field: "sources", Message: "graph and article sources are swapped"}
	}

	writer := o.writer
	if writer == nil {
		if writer, err = c.newWriter(); err != nil {
			return err
		}
	}
	c.submitter, err = present.NewSubmitAction(o.credentials, writer, present.WithTwoSided(o.twoSided))
	return err
}

// newWriter creates the write API client. Writes keep a session cookie,
// send the OAuth token when one is configured and are never retried, so a
// timed-out edit cannot be applied twice.
func (c *client) newWriter() (*wikibase.Client, error) {
	o := c.options
	opts := append(c.transportOptions(),
		transport.WithCookieJar(),
		transport.WithRetry(retry.Config{MaxAttempts: 1}),
	)
	if o.credentials.Token != "" {
		opts = append(opts, transport.WithAuthenticator(&transport.BearerAuth{Token: o.credentials.Token}))
	}
	write, err := transport.New(opts...)
	if err != nil {
		return nil, err
	}
	return wikibase.NewClient(write,
		wikibase.WithEndpoint(o.apiEndpoint),
		wikibase.WithLanguage(o.language),
		wikibase.WithBotFlag(o.botEdits),
		wikibase.WithResolver(func(ctx context.Context, city twins.CityID) ([]string, error) {
			return wikidata.Lookup(ctx, c.fetcher, c.builder, city)
		}),
	), nil
}

func (c *client) transportOptions() []transport.Option {
	o := c.options
	var opts []transport.Option
	if o.httpClient != nil {
		// The transport sets the timeout on its client; the caller's stays untouched.
		hc := *o.httpClient
		opts = append(opts, transport.WithHTTPClient(&hc))
	}
	return append(opts,
		transport.WithTimeout(o.timeout),
		transport.WithUserAgent(o.userAgent),
		transport.WithRateLimit(o.rateLimit, constants.BurstSize),
		transport.WithRetry(o.retry),
	)
}
