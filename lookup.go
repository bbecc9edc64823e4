package twinmap

import (
	"context"

	"github.com/agentstation/twinmap/internal/sources/wikidata"
	"github.com/agentstation/twinmap/pkg/logging"
	"github.com/agentstation/twinmap/pkg/query"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Lookup returns the graph entity ids whose sitelink is the article city.
// An entity IRI resolves to itself without a request.
func (c *client) Lookup(ctx context.Context, city string) ([]string, error) {
	id, err := twins.ParseCityID(city)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithOperation(logging.WithCity(ctx, id.String()), "lookup")

	ids, err := wikidata.Lookup(ctx, c.fetcher, c.builder, id)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().Strs("ids", ids).Msg("Identifier resolved")
	return ids, nil
}

// Query returns the text of a kind query for city, as it would be sent.
func (c *client) Query(city string, kind query.Kind) (string, error) {
	id, err := twins.ParseCityID(city)
	if err != nil {
		return "", err
	}
	return c.builder.Build(id, kind)
}
