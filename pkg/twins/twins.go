// Package twins defines the value types shared by every stage of a twin-city
// comparison: the city identifier, the source a record came from, calendar
// dates with reduced precision, references and the normalized record itself.
package twins

// Source identifies which origin produced a record.
type Source string

const (
	// SourceGraph is the structured knowledge graph (Wikidata).
	SourceGraph Source = "graph"
	// SourceArticle is the encyclopedia article text (Wikipedia).
	SourceArticle Source = "article"
)

// String returns the string representation of a source.
func (s Source) String() string {
	return string(s)
}

// Other returns the opposite source.
func (s Source) Other() Source {
	if s == SourceGraph {
		return SourceArticle
	}
	return SourceGraph
}

// Reference is citation metadata supporting one twinning assertion.
// Every field is optional.
type Reference struct {
	Retrieved *Date  `json:"retrieved,omitempty" yaml:"retrieved,omitempty"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	Publisher string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
}

// IsZero reports whether no field of the reference is set.
func (r Reference) IsZero() bool {
	return r.Retrieved == nil && r.URL == "" && r.Publisher == "" && r.Title == ""
}

// Record is one asserted twin-city relationship as seen by one source.
// Records are built by the normalizer and treated as immutable afterwards.
type Record struct {
	Source      Source      `json:"source" yaml:"source"`
	Key         string      `json:"key" yaml:"key"`
	PartnerName string      `json:"partner_name" yaml:"partner_name"`
	PartnerID   string      `json:"partner_id,omitempty" yaml:"partner_id,omitempty"` // graph only
	PartnerURL  string      `json:"partner_url,omitempty" yaml:"partner_url,omitempty"`
	Country     string      `json:"country,omitempty" yaml:"country,omitempty"`
	Start       *Date       `json:"start,omitempty" yaml:"start,omitempty"`
	End         *Date       `json:"end,omitempty" yaml:"end,omitempty"`
	References  []Reference `json:"references,omitempty" yaml:"references,omitempty"`
}

// HasReferences reports whether the record carries at least one reference.
func (r Record) HasReferences() bool {
	return len(r.References) > 0
}

// Active reports whether the twinning has no recorded end.
func (r Record) Active() bool {
	return r.End == nil
}
