package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/twinmap/pkg/differ"
	"github.com/agentstation/twinmap/pkg/twins"
)

// Status classifies a partner.
type Status string

const (
	// StatusMatched means both sources list the partner.
	StatusMatched Status = "MATCHED"
	// StatusGraphOnly means only the graph lists the partner.
	StatusGraphOnly Status = "GRAPH_ONLY"
	// StatusArticleOnly means only the article lists the partner.
	StatusArticleOnly Status = "ARTICLE_ONLY"
)

// Statuses returns every status in presentation order.
func Statuses() []Status {
	return []Status{StatusMatched, StatusGraphOnly, StatusArticleOnly}
}

// Entry is the outcome for one canonical partner name. Graph and Article are
// both set exactly when Status is MATCHED.
type Entry struct {
	Key     string               `json:"key" yaml:"key"`
	Status  Status               `json:"status" yaml:"status"`
	Graph   *twins.Record        `json:"graph,omitempty" yaml:"graph,omitempty"`
	Article *twins.Record        `json:"article,omitempty" yaml:"article,omitempty"`
	Changes []differ.FieldChange `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// Record returns whichever record is present, preferring the graph side.
func (e Entry) Record() *twins.Record {
	if e.Graph != nil {
		return e.Graph
	}
	return e.Article
}

// Name returns the display name of the partner.
func (e Entry) Name() string {
	if rec := e.Record(); rec != nil {
		return rec.PartnerName
	}
	return e.Key
}

// Result represents the outcome of a reconciliation.
type Result struct {
	City     twins.CityID     `json:"city,omitempty" yaml:"city,omitempty"`
	Entries  []Entry          `json:"entries" yaml:"entries"`
	Stats    ResultStatistics `json:"stats" yaml:"stats"`
	Metadata ResultMetadata   `json:"metadata" yaml:"metadata"`

	index map[string]int
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	StartTime utc.Time      `json:"start_time" yaml:"start_time"`
	EndTime   utc.Time      `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// ResultStatistics counts entries per status and the input that led to them.
type ResultStatistics struct {
	Matched           int `json:"matched" yaml:"matched"`
	GraphOnly         int `json:"graph_only" yaml:"graph_only"`
	ArticleOnly       int `json:"article_only" yaml:"article_only"`
	GraphRecords      int `json:"graph_records" yaml:"graph_records"`
	ArticleRecords    int `json:"article_records" yaml:"article_records"`
	GraphDuplicates   int `json:"graph_duplicates" yaml:"graph_duplicates"`
	ArticleDuplicates int `json:"article_duplicates" yaml:"article_duplicates"`
	GraphSkipped      int `json:"graph_skipped" yaml:"graph_skipped"`
	ArticleSkipped    int `json:"article_skipped" yaml:"article_skipped"`
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{
		Entries:  []Entry{},
		index:    map[string]int{},
		Metadata: ResultMetadata{StartTime: utc.Now()},
	}
}

// Len returns the number of entries.
func (r *Result) Len() int {
	return len(r.Entries)
}

// Keys returns every key in order.
func (r *Result) Keys() []string {
	keys := make([]string, len(r.Entries))
	for i, entry := range r.Entries {
		keys[i] = entry.Key
	}
	return keys
}

// Entry returns the entry for key.
func (r *Result) Entry(key string) (Entry, bool) {
	if r.index == nil {
		for _, entry := range r.Entries {
			if entry.Key == key {
				return entry, true
			}
		}
		return Entry{}, false
	}
	i, ok := r.index[key]
	if !ok {
		return Entry{}, false
	}
	return r.Entries[i], true
}

// ByStatus returns the entries with the given status, in key order.
func (r *Result) ByStatus(status Status) []Entry {
	entries := []Entry{}
	for _, entry := range r.Entries {
		if entry.Status == status {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Matched returns the partners listed by both sources.
func (r *Result) Matched() []Entry {
	return r.ByStatus(StatusMatched)
}

// GraphOnly returns the partners missing from the article.
func (r *Result) GraphOnly() []Entry {
	return r.ByStatus(StatusGraphOnly)
}

// ArticleOnly returns the partners missing from the graph.
func (r *Result) ArticleOnly() []Entry {
	return r.ByStatus(StatusArticleOnly)
}

// HasDiscrepancies reports whether any partner is listed by one source only.
func (r *Result) HasDiscrepancies() bool {
	return r.Stats.GraphOnly > 0 || r.Stats.ArticleOnly > 0
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	if r.Len() == 0 {
		return "No twin cities found in either source."
	}
	return fmt.Sprintf("%d partners: %d matched, %d graph only, %d article only",
		r.Len(), r.Stats.Matched, r.Stats.GraphOnly, r.Stats.ArticleOnly)
}
