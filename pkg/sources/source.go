// Package sources defines the interface both sides of a comparison
// implement: given a city, return the raw rows that list its twin cities.
//
// Example usage:
//
//	graph := wikidata.NewSource(fetcher, builder)
//	rows, err := graph.Rows(ctx, city)
//	if err != nil {
//	    return err
//	}
package sources

import (
	"context"

	"github.com/agentstation/twinmap/pkg/sparql"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Source fetches the raw twinning rows of one origin.
type Source interface {
	// ID returns which side of the comparison the source feeds.
	ID() twins.Source

	// Rows returns the raw rows listing the twin cities of city.
	Rows(ctx context.Context, city twins.CityID) (*sparql.RowSet, error)
}

// Func adapts a function to the Source interface.
type Func struct {
	Side  twins.Source
	Fetch func(ctx context.Context, city twins.CityID) (*sparql.RowSet, error)
}

// ID implements Source.
func (f Func) ID() twins.Source {
	return f.Side
}

// Rows implements Source.
func (f Func) Rows(ctx context.Context, city twins.CityID) (*sparql.RowSet, error) {
	return f.Fetch(ctx, city)
}

// Static returns a Source that always yields rs, for tests and offline runs.
func Static(side twins.Source, rs *sparql.RowSet) Source {
	return Func{Side: side, Fetch: func(context.Context, twins.CityID) (*sparql.RowSet, error) {
		return rs, nil
	}}
}
