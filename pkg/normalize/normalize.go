// Package normalize turns raw result rows from either source into
// twins.Record values. Rows without a resolvable partner name are skipped
// and counted, never reported as errors.
package normalize

import (
	"sort"
	"strings"

	"github.com/agentstation/twinmap/pkg/sparql"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Variable names shared by the graph query templates and the article extractor.
const (
	VarTargetID           = "targetId"
	VarTargetLabel        = "targetLabel"
	VarTargetURL          = "targetUrl"
	VarCountry            = "country"
	VarStartTime          = "starttime"
	VarEndTime            = "endtime"
	VarRefNode            = "refnode"
	VarRetrieved          = "retrieved"
	VarReferenceURL       = "referenceUrl"
	VarReferencePublisher = "referencePublisher"
	VarReferenceName      = "referenceName"
)

// Stats counts what happened to the rows of one batch.
type Stats struct {
	Rows             int `json:"rows" yaml:"rows"`
	Records          int `json:"records" yaml:"records"`
	Skipped          int `json:"skipped" yaml:"skipped"`
	DatesDropped     int `json:"dates_dropped" yaml:"dates_dropped"`
	RowsMerged       int `json:"rows_merged" yaml:"rows_merged"`
	ReferencesMerged int `json:"references_merged" yaml:"references_merged"`
}

// Batch is the normalized output of one row set.
type Batch struct {
	Source  twins.Source
	Records []twins.Record // ordered by key
	Skipped int
	Stats   Stats
}

// Normalizer maps raw rows to records. The zero value is not usable; use New.
type Normalizer struct {
	key func(string) string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDiacriticFolding makes keys ignore diacritics (Göttingen == Gottingen).
func WithDiacriticFolding(enabled bool) Option {
	return func(n *Normalizer) {
		if enabled {
			n.key = FoldedKey
		} else {
			n.key = Key
		}
	}
}

// WithKeyFunc replaces the canonical key function.
func WithKeyFunc(fn func(string) string) Option {
	return func(n *Normalizer) {
		if fn != nil {
			n.key = fn
		}
	}
}

// New creates a Normalizer with exact canonical keys by default.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{key: Key}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Key returns the canonical key this normalizer assigns to name.
func (n *Normalizer) Key(name string) string {
	return n.key(name)
}

// KeyFunc returns the key function, for use by the reconciler.
func (n *Normalizer) KeyFunc() func(string) string {
	return n.key
}

// Row normalizes a single row. It returns false when the row has no
// resolvable partner name.
func (n *Normalizer) Row(row sparql.Row, source twins.Source) (twins.Record, bool) {
	var stats Stats
	return n.row(row, source, &stats)
}

func (n *Normalizer) row(row sparql.Row, source twins.Source, stats *Stats) (twins.Record, bool) {
	name := partnerName(row)
	if name == "" {
		return twins.Record{}, false
	}
	key := n.key(name)
	if key == "" {
		return twins.Record{}, false
	}

	rec := twins.Record{
		Source:      source,
		Key:         key,
		PartnerName: name,
		PartnerURL:  text(row.Get(VarTargetURL)),
		Country:     text(row.Get(VarCountry)),
		Start:       date(row.Get(VarStartTime), stats),
		End:         date(row.Get(VarEndTime), stats),
	}
	if source == twins.SourceGraph {
		rec.PartnerID = entityID(row.Get(VarTargetID))
	}
	if ref := reference(row, stats); !ref.IsZero() {
		rec.References = []twins.Reference{ref}
	}
	return rec, true
}

// group accumulates the rows of one partner.
type group struct {
	record twins.Record
	// refIndex maps a reference node to its position in record.References.
	refIndex map[string]int
}

// Rows normalizes every row of rs. Rows describing the same partner are
// merged into one record, and reference sub-fields sharing a reference node
// collapse into a single reference. References keep first-seen order.
func (n *Normalizer) Rows(rs *sparql.RowSet, source twins.Source) Batch {
	batch := Batch{Source: source}
	if rs == nil {
		batch.Records = []twins.Record{}
		return batch
	}

	var (
		order  []string
		groups = make(map[string]*group)
	)

	for _, row := range rs.Rows {
		batch.Stats.Rows++

		rec, ok := n.row(row, source, &batch.Stats)
		if !ok {
			batch.Stats.Skipped++
			continue
		}

		id := groupID(rec)
		g, seen := groups[id]
		if !seen {
			g = &group{record: rec, refIndex: make(map[string]int)}
			g.record.References = nil
			groups[id] = g
			order = append(order, id)
		} else {
			batch.Stats.RowsMerged++
			mergeScalars(&g.record, rec)
		}

		if len(rec.References) == 0 {
			continue
		}
		ref := rec.References[0]
		node := text(row.Get(VarRefNode))
		if node == "" {
			g.record.References = append(g.record.References, ref)
			continue
		}
		if idx, ok := g.refIndex[node]; ok {
			g.record.References[idx] = mergeReference(g.record.References[idx], ref)
			batch.Stats.ReferencesMerged++
			continue
		}
		g.refIndex[node] = len(g.record.References)
		g.record.References = append(g.record.References, ref)
	}

	batch.Records = make([]twins.Record, 0, len(order))
	for _, id := range order {
		batch.Records = append(batch.Records, groups[id].record)
	}
	sort.SliceStable(batch.Records, func(i, j int) bool {
		return batch.Records[i].Key < batch.Records[j].Key
	})

	batch.Skipped = batch.Stats.Skipped
	batch.Stats.Records = len(batch.Records)
	return batch
}

// Rows normalizes rs with default options.
func Rows(rs *sparql.RowSet, source twins.Source) Batch {
	return New().Rows(rs, source)
}

// groupID identifies a partner within one source: the graph entity when
// known, the canonical key otherwise.
func groupID(rec twins.Record) string {
	if rec.PartnerID != "" {
		return "id:" + rec.PartnerID
	}
	return "key:" + rec.Key
}

// mergeScalars fills fields missing on dst from a later row.
func mergeScalars(dst *twins.Record, src twins.Record) {
	if dst.PartnerURL == "" {
		dst.PartnerURL = src.PartnerURL
	}
	if dst.Country == "" {
		dst.Country = src.Country
	}
	if dst.Start == nil {
		dst.Start = src.Start
	}
	if dst.End == nil {
		dst.End = src.End
	}
}

func mergeReference(dst, src twins.Reference) twins.Reference {
	if dst.Retrieved == nil {
		dst.Retrieved = src.Retrieved
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.Publisher == "" {
		dst.Publisher = src.Publisher
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	return dst
}

// partnerName resolves the display name: the label when it is a real name,
// the title decoded from the article URL otherwise.
func partnerName(row sparql.Row) string {
	label := strings.TrimSpace(text(row.Get(VarTargetLabel)))
	if label != "" && !twins.IsEntityID(label) {
		return label
	}
	if title, ok := twins.TitleFromURL(text(row.Get(VarTargetURL))); ok {
		return strings.TrimSpace(title)
	}
	return ""
}

func reference(row sparql.Row, stats *Stats) twins.Reference {
	return twins.Reference{
		Retrieved: retrievedDate(row.Get(VarRetrieved), stats),
		URL:       text(row.Get(VarReferenceURL)),
		Publisher: text(row.Get(VarReferencePublisher)),
		Title:     text(row.Get(VarReferenceName)),
	}
}

func text(v sparql.Value) string {
	switch v.Kind() {
	case sparql.String, sparql.URL, sparql.Date:
		return v.Text()
	case sparql.Absent:
		return ""
	default:
		return ""
	}
}

// date parses a qualifier date. Unparsable values are dropped and counted.
func date(v sparql.Value, stats *Stats) *twins.Date {
	switch v.Kind() {
	case sparql.Absent:
		return nil
	case sparql.Date, sparql.String:
		if d, ok := v.AsDate(); ok {
			return &d
		}
		stats.DatesDropped++
		return nil
	case sparql.URL:
		// The graph encodes unknown values as a blank-node IRI.
		stats.DatesDropped++
		return nil
	default:
		return nil
	}
}

// retrievedDate also accepts several dates in one value and keeps the latest.
func retrievedDate(v sparql.Value, stats *Stats) *twins.Date {
	if v.Kind() == sparql.String {
		if d, err := twins.ParseLatestDate(v.Text()); err == nil {
			return &d
		}
		stats.DatesDropped++
		return nil
	}
	return date(v, stats)
}

func entityID(v sparql.Value) string {
	u, ok := v.AsURL()
	if !ok {
		return ""
	}
	id, ok := twins.CityID(u).EntityID()
	if !ok {
		return ""
	}
	return id
}
