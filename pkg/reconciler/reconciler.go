// Package reconciler partitions the twinning records of the two sources by
// canonical partner name. Every key found on either side appears exactly
// once in the result, as MATCHED, GRAPH_ONLY or ARTICLE_ONLY.
package reconciler

import (
	"sort"

	"github.com/agentstation/utc"

	"github.com/agentstation/twinmap/pkg/differ"
	"github.com/agentstation/twinmap/pkg/normalize"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Reconciler compares the records of the graph and article sources.
type Reconciler interface {
	// Reconcile classifies every partner of both inputs.
	Reconcile(graph, article []twins.Record) *Result
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	options *options
}

// New creates a Reconciler.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{options: options}, nil
}

// Reconcile classifies records with the default options.
func Reconcile(graph, article []twins.Record) *Result {
	r := &reconciler{options: defaultOptions()}
	return r.Reconcile(graph, article)
}

// Reconcile builds a key to record map per side, takes the union of both key
// sets and assigns a status per key. The output is sorted by key and does not
// depend on the order of either input.
func (r *reconciler) Reconcile(graph, article []twins.Record) *Result {
	result := NewResult()

	graphByKey, graphDup := r.index(graph)
	articleByKey, articleDup := r.index(article)

	keys := make([]string, 0, len(graphByKey)+len(articleByKey))
	for key := range graphByKey {
		keys = append(keys, key)
	}
	for key := range articleByKey {
		if _, ok := graphByKey[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	result.Entries = make([]Entry, 0, len(keys))
	for _, key := range keys {
		entry := Entry{Key: key, Graph: graphByKey[key], Article: articleByKey[key]}

		switch {
		case entry.Graph != nil && entry.Article != nil:
			entry.Status = StatusMatched
			if r.options.differ != nil {
				entry.Changes = r.options.differ.Records(*entry.Graph, *entry.Article)
			}
			result.Stats.Matched++
		case entry.Graph != nil:
			entry.Status = StatusGraphOnly
			result.Stats.GraphOnly++
		default:
			entry.Status = StatusArticleOnly
			result.Stats.ArticleOnly++
		}

		result.Entries = append(result.Entries, entry)
	}

	result.Stats.GraphRecords = len(graph)
	result.Stats.ArticleRecords = len(article)
	result.Stats.GraphDuplicates = graphDup
	result.Stats.ArticleDuplicates = articleDup
	result.finalize()
	return result
}

// index maps each key to one record. Records sharing a key are merged: the
// first in recordLess order wins and the references of the others are
// appended, then sorted. Records are copied so the inputs are never modified.
func (r *reconciler) index(records []twins.Record) (map[string]*twins.Record, int) {
	byKey := make(map[string]*twins.Record, len(records))
	merged := make(map[string]bool)
	duplicates := 0

	sorted := make([]twins.Record, 0, len(records))
	for _, rec := range records {
		if rec.Key = r.key(rec); rec.Key != "" {
			sorted = append(sorted, rec)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Key != sorted[j].Key {
			return sorted[i].Key < sorted[j].Key
		}
		return recordLess(sorted[i], sorted[j])
	})

	for i := range sorted {
		rec := sorted[i]
		if existing, ok := byKey[rec.Key]; ok {
			duplicates++
			merged[rec.Key] = true
			existing.References = append(existing.References, rec.References...)
			continue
		}
		rec.References = append([]twins.Reference(nil), rec.References...)
		byKey[rec.Key] = &rec
	}

	for key := range merged {
		refs := byKey[key].References
		sort.SliceStable(refs, func(i, j int) bool { return referenceLess(refs[i], refs[j]) })
	}
	return byKey, duplicates
}

// recordLess orders homonyms by entity id, then article URL, then the
// remaining fields, so the same record wins whatever the row order.
func recordLess(a, b twins.Record) bool {
	if c := compareIDs(a.PartnerID, b.PartnerID); c != 0 {
		return c < 0
	}
	for _, pair := range [][2]string{
		{a.PartnerURL, b.PartnerURL},
		{a.PartnerName, b.PartnerName},
		{a.Country, b.Country},
		{dateString(a.Start), dateString(b.Start)},
		{dateString(a.End), dateString(b.End)},
	} {
		if pair[0] != pair[1] {
			return pair[0] < pair[1]
		}
	}
	return len(a.References) < len(b.References)
}

func referenceLess(a, b twins.Reference) bool {
	for _, pair := range [][2]string{
		{a.URL, b.URL},
		{a.Title, b.Title},
		{a.Publisher, b.Publisher},
		{dateString(a.Retrieved), dateString(b.Retrieved)},
	} {
		if pair[0] != pair[1] {
			return pair[0] < pair[1]
		}
	}
	return false
}

// compareIDs orders entity ids numerically (Q99 before Q100). Empty ids
// sort last.
func compareIDs(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	case len(a) != len(b):
		if len(a) < len(b) {
			return -1
		}
		return 1
	case a < b:
		return -1
	default:
		return 1
	}
}

func dateString(d *twins.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func (r *reconciler) key(rec twins.Record) string {
	if r.options.keyFunc != nil {
		return r.options.keyFunc(rec.PartnerName)
	}
	if rec.Key != "" {
		return rec.Key
	}
	return normalize.Key(rec.PartnerName)
}

func (result *Result) finalize() {
	result.index = make(map[string]int, len(result.Entries))
	for i, entry := range result.Entries {
		result.index[entry.Key] = i
	}
	result.Metadata.EndTime = utc.Now()
	result.Metadata.Duration = result.Metadata.EndTime.Time.Sub(result.Metadata.StartTime.Time)
}

// diffOrNil returns the default differ when enabled.
func diffOrNil(enabled bool) differ.Differ {
	if !enabled {
		return nil
	}
	return differ.New()
}
