// Package differ compares the graph and article records of a matched
// partner field by field, so a curator can see where two sources that agree
// on a twinning still disagree on its details.
package differ

import (
	"net/url"
	"sort"
	"strconv"

	"github.com/agentstation/twinmap/pkg/twins"
)

// ChangeType describes how the article side differs from the graph side.
type ChangeType string

const (
	// ChangeTypeAdd means only the article has a value.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate means both sides have different values.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove means only the graph has a value.
	ChangeTypeRemove ChangeType = "remove"
)

// Compared fields.
const (
	FieldName       = "name"
	FieldURL        = "url"
	FieldStart      = "start"
	FieldEnd        = "end"
	FieldReferences = "references"
)

// FieldChange represents a disagreement on a specific field.
type FieldChange struct {
	Path         string     `json:"path" yaml:"path"`
	GraphValue   string     `json:"graph,omitempty" yaml:"graph,omitempty"`
	ArticleValue string     `json:"article,omitempty" yaml:"article,omitempty"`
	Type         ChangeType `json:"type" yaml:"type"`
}

// Differ handles change detection between the two records of a partner.
type Differ interface {
	// Records compares the graph and article records of one partner.
	Records(graph, article twins.Record) []FieldChange
}

// differ is the default implementation of Differ.
type differ struct {
	ignoreFields map[string]bool
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{ignoreFields: make(map[string]bool)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Records compares two records and returns the changes sorted by path.
func (diff *differ) Records(graph, article twins.Record) []FieldChange {
	var changes []FieldChange

	diff.compare(&changes, FieldName, graph.PartnerName, article.PartnerName)
	diff.compare(&changes, FieldURL, canonicalURL(graph.PartnerURL), canonicalURL(article.PartnerURL))
	diff.compare(&changes, FieldStart, dateString(graph.Start), dateString(article.Start))
	diff.compare(&changes, FieldEnd, dateString(graph.End), dateString(article.End))
	if len(graph.References) != len(article.References) {
		diff.compare(&changes, FieldReferences,
			strconv.Itoa(len(graph.References)), strconv.Itoa(len(article.References)))
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

func (diff *differ) compare(changes *[]FieldChange, path, graph, article string) {
	if diff.ignoreFields[path] || graph == article {
		return
	}

	change := FieldChange{Path: path, GraphValue: graph, ArticleValue: article}
	switch {
	case graph == "":
		change.Type = ChangeTypeAdd
	case article == "":
		change.Type = ChangeTypeRemove
	default:
		change.Type = ChangeTypeUpdate
	}
	*changes = append(*changes, change)
}

// canonicalURL decodes percent-escapes so that both encodings of a title compare equal.
func canonicalURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = "https"
	return u.Scheme + "://" + u.Host + u.Path
}

func dateString(d *twins.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
