package twinmap

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/logging"
	"github.com/agentstation/twinmap/pkg/normalize"
	"github.com/agentstation/twinmap/pkg/reconciler"
	"github.com/agentstation/twinmap/pkg/sources"
	"github.com/agentstation/twinmap/pkg/sparql"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Compare fetches the twin cities of city from both sources and classifies
// every partner. city is an article URL or an entity IRI.
//
// A failing source does not stop the other one. The result is returned only
// when both succeeded; otherwise the error is a *errors.SourceError naming
// the failing side, or both of them joined.
func (c *client) Compare(ctx context.Context, city string) (*reconciler.Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Validate the identifier before any request is sent
	id, err := twins.ParseCityID(city)
	if err != nil {
		return nil, err
	}
	if logging.RunID(ctx) == "" {
		ctx = logging.WithRunID(ctx, uuid.NewString())
	}
	ctx = logging.WithCity(ctx, id.String())
	log := logging.FromContext(ctx)

	// Step 2: Fetch both sides
	graphRows, articleRows, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	// Step 3: Normalize raw rows into records
	graph := c.normalizer.Rows(graphRows, twins.SourceGraph)
	article := c.normalizer.Rows(articleRows, twins.SourceArticle)
	log.Debug().
		Int("graph_records", len(graph.Records)).
		Int("graph_skipped", graph.Skipped).
		Int("article_records", len(article.Records)).
		Int("article_skipped", article.Skipped).
		Msg("Rows normalized")

	// Step 4: Reconcile
	result := c.reconciler.Reconcile(graph.Records, article.Records)
	result.City = id
	result.Stats.GraphSkipped = graph.Skipped
	result.Stats.ArticleSkipped = article.Skipped

	log.Info().
		Int("matched", result.Stats.Matched).
		Int("graph_only", result.Stats.GraphOnly).
		Int("article_only", result.Stats.ArticleOnly).
		Dur("duration", result.Metadata.Duration).
		Msg("Comparison completed")

	// Step 5: Notify listeners
	c.hooks.triggerResult(result)
	return result, nil
}

// fetch reads both sources, one after the other or concurrently. Neither
// fetch cancels the other.
func (c *client) fetch(ctx context.Context, city twins.CityID) (graph, article *sparql.RowSet, err error) {
	var graphErr, articleErr error

	if c.options.parallelFetch {
		var g errgroup.Group
		g.Go(func() error {
			graph, graphErr = c.fetchSource(ctx, c.graph, city)
			return nil
		})
		g.Go(func() error {
			article, articleErr = c.fetchSource(ctx, c.article, city)
			return nil
		})
		_ = g.Wait()
	} else {
		graph, graphErr = c.fetchSource(ctx, c.graph, city)
		article, articleErr = c.fetchSource(ctx, c.article, city)
	}

	switch {
	case graphErr != nil && articleErr != nil:
		return nil, nil, errors.Join(graphErr, articleErr)
	case graphErr != nil:
		return nil, nil, graphErr
	case articleErr != nil:
		return nil, nil, articleErr
	}
	return graph, article, nil
}

func (c *client) fetchSource(ctx context.Context, src sources.Source, city twins.CityID) (*sparql.RowSet, error) {
	ctx = logging.WithSource(ctx, src.ID().String())
	log := logging.FromContext(ctx)

	rs, err := src.Rows(ctx, city)
	if err != nil {
		log.Warn().Err(err).Msg("Source failed")
		return nil, &errors.SourceError{Source: src.ID().String(), City: city.String(), Err: err}
	}
	if rs == nil {
		rs = &sparql.RowSet{}
	}
	log.Debug().Int("rows", rs.Len()).Msg("Source fetched")
	return rs, nil
}

// findEntry returns the entry of partner, given as a canonical key or a
// display name.
func (c *client) findEntry(result *reconciler.Result, partner string) (reconciler.Entry, bool) {
	if entry, ok := result.Entry(partner); ok {
		return entry, true
	}
	if entry, ok := result.Entry(c.normalizer.Key(partner)); ok {
		return entry, true
	}
	return result.Entry(normalize.Key(partner))
}
