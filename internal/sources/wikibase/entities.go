package wikibase

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/twins"
)

type entity struct {
	ID      string `json:"id"`
	Missing bool   `json:"missing"`
	Labels  map[string]struct {
		Value string `json:"value"`
	} `json:"labels"`
	Sitelinks map[string]struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"sitelinks"`
}

type entitiesResponse struct {
	Entities map[string]entity `json:"entities"`
}

// SiteID returns the sitelink site id of an article host, e.g. enwiki for
// en.wikipedia.org.
func SiteID(host string) (string, bool) {
	lang, ok := strings.CutSuffix(host, constants.ArticleHostSuffix)
	if !ok || lang == "" || strings.Contains(lang, ".") {
		return "", false
	}
	return strings.ReplaceAll(lang, "-", "_") + "wiki", true
}

// ResolveEntity returns the entity id of city. Article URLs are resolved
// with the configured Resolver or, without one, through their sitelink.
func (c *Client) ResolveEntity(ctx context.Context, city twins.CityID) (string, error) {
	if id, ok := city.EntityID(); ok {
		return id, nil
	}
	if c.resolver != nil {
		ids, err := c.resolver(ctx, city)
		if err != nil {
			return "", err
		}
		if len(ids) == 0 {
			return "", errors.NewNotFoundError("entity", city.String())
		}
		return ids[0], nil
	}

	host, ok := city.ArticleHost()
	if !ok {
		return "", errors.NewInvalidIdentifierError(city.String(), "neither an article URL nor a graph entity IRI")
	}
	site, ok := SiteID(host)
	if !ok {
		return "", errors.NewInvalidIdentifierError(city.String(), "unknown article site "+host)
	}

	var resp entitiesResponse
	params := url.Values{
		"action": {"wbgetentities"},
		"sites":  {site},
		"titles": {city.Title()},
		"props":  {"info"},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}

	ids := make([]string, 0, len(resp.Entities))
	for key, e := range resp.Entities {
		if e.Missing || !twins.IsEntityID(key) {
			continue
		}
		ids = append(ids, key)
	}
	if len(ids) == 0 {
		return "", errors.NewNotFoundError("entity", city.String())
	}
	sort.Strings(ids)
	return ids[0], nil
}

// lookup fetches one entity with the given props.
func (c *Client) lookup(ctx context.Context, id string, params url.Values) (entity, error) {
	params.Set("action", "wbgetentities")
	params.Set("ids", id)
	var resp entitiesResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return entity{}, err
	}
	e, ok := resp.Entities[id]
	if !ok || e.Missing {
		return entity{}, errors.NewNotFoundError("entity", id)
	}
	return e, nil
}

// Label returns the label of the entity in the configured language, or the
// id itself when the entity has none.
func (c *Client) Label(ctx context.Context, id string) (string, error) {
	e, err := c.lookup(ctx, id, url.Values{"props": {"labels"}, "languages": {c.language}})
	if err != nil {
		return "", err
	}
	if label, ok := e.Labels[c.language]; ok && label.Value != "" {
		return label.Value, nil
	}
	return id, nil
}

// ArticleURL returns the article URL the entity links to on host.
func (c *Client) ArticleURL(ctx context.Context, city twins.CityID, host string) (twins.CityID, error) {
	id, ok := city.EntityID()
	if !ok {
		return "", errors.NewInvalidIdentifierError(city.String(), "not a graph entity IRI")
	}
	site, ok := SiteID(host)
	if !ok {
		return "", errors.NewInvalidIdentifierError(host, "unknown article site")
	}

	e, err := c.lookup(ctx, id, url.Values{"props": {"sitelinks/urls"}, "sitefilter": {site}})
	if err != nil {
		return "", err
	}
	link, ok := e.Sitelinks[site]
	if !ok || link.URL == "" {
		return "", errors.NewNotFoundError("article", id+"@"+site)
	}
	return twins.ParseCityID(link.URL)
}
