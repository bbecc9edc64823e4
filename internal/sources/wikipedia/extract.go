package wikipedia

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/agentstation/twinmap/pkg/normalize"
	"github.com/agentstation/twinmap/pkg/sparql"
	"github.com/agentstation/twinmap/pkg/twins"
)

// SectionTitles are the lower-cased heading fragments that introduce a
// twin-city list, most specific first. International relations is a
// fallback used only when no narrower heading exists.
var SectionTitles = []string{
	"twin towns",
	"sister cities",
	"sister city",
	"twin cities",
	"twinning",
	"partner cities",
	"partner towns",
	"partnerships",
	"international relations",
}

// Columns lists the variables of the extracted rows.
var Columns = []string{
	normalize.VarTargetLabel,
	normalize.VarTargetURL,
	normalize.VarCountry,
	normalize.VarRefNode,
	normalize.VarReferenceURL,
	normalize.VarReferenceName,
	normalize.VarReferencePublisher,
	normalize.VarRetrieved,
}

const headingSelector = "h1, h2, h3, h4, h5, h6"

var retrievedPattern = regexp.MustCompile(`(?i)(?:retrieved|accessed)(?: on)?\s+([^.;]+)`)

// Extract finds the twin-city section of doc and returns one row per listed
// partner and cited reference. Links are resolved against base. A document
// without such a section yields an empty row set.
func Extract(doc *goquery.Document, base *url.URL) *sparql.RowSet {
	rs := &sparql.RowSet{Vars: Columns}
	heading := findSection(doc)
	if heading == nil {
		return rs
	}

	e := &extractor{doc: doc, base: base, refs: make(map[string]reference)}
	for _, block := range sectionContent(heading) {
		rs.Rows = append(rs.Rows, e.block(block)...)
	}
	return rs
}

// findSection returns the heading element of the twin-city section.
func findSection(doc *goquery.Document) *goquery.Selection {
	headings := doc.Find(headingSelector)
	for _, title := range SectionTitles {
		var found *goquery.Selection
		headings.EachWithBreak(func(_ int, h *goquery.Selection) bool {
			if strings.Contains(headingText(h), title) {
				found = h
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func headingText(h *goquery.Selection) string {
	if headline := h.Find(".mw-headline"); headline.Length() > 0 {
		return strings.ToLower(strings.TrimSpace(headline.Text()))
	}
	c := h.Clone()
	c.Find(".mw-editsection").Remove()
	return strings.ToLower(strings.Join(strings.Fields(c.Text()), " "))
}

// sectionContent returns the siblings following heading up to the next
// heading of the same or a higher level. Newer skins wrap headings in a
// div.mw-heading, which is then the sibling to walk from.
func sectionContent(heading *goquery.Selection) []*goquery.Selection {
	block := heading
	if parent := heading.Parent(); parent.HasClass("mw-heading") {
		block = parent
	}
	level := headingLevel(block)

	var content []*goquery.Selection
	block.NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if l := headingLevel(s); l > 0 && l <= level {
			return false
		}
		content = append(content, s)
		return true
	})
	return content
}

func headingLevel(s *goquery.Selection) int {
	node := s
	if s.HasClass("mw-heading") {
		node = s.ChildrenFiltered(headingSelector).First()
	}
	if node.Length() == 0 {
		return 0
	}
	name := goquery.NodeName(node)
	if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
		return int(name[1] - '0')
	}
	return 0
}

type reference struct {
	url       string
	title     string
	publisher string
	retrieved string
}

type extractor struct {
	doc  *goquery.Document
	base *url.URL
	refs map[string]reference
}

// block extracts the rows of one element of the section.
func (e *extractor) block(s *goquery.Selection) []sparql.Row {
	var rows []sparql.Row
	s.Find("li").AddBackFiltered("li").Each(func(_ int, li *goquery.Selection) {
		if li.Closest(".references, .reflist, .navbox, .mw-references-wrap").Length() > 0 {
			return
		}
		// An item holding a nested list groups partners by country.
		if li.ChildrenFiltered("ul, ol").Length() > 0 {
			return
		}
		rows = append(rows, e.item(li, e.groupCountry(li))...)
	})
	s.Find("tr").AddBackFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Closest(".navbox").Length() > 0 || tr.Find("li").Length() > 0 {
			return
		}
		rows = append(rows, e.tableRow(tr)...)
	})
	return rows
}

// item extracts the partner linked from a list item.
func (e *extractor) item(li *goquery.Selection, country string) []sparql.Row {
	link := e.partnerLink(li, func(a *goquery.Selection) bool {
		return a.Closest("li").IsSelection(li)
	})
	if link == nil {
		return nil
	}
	if country == "" {
		country = trailingText(ownText(li), link.label)
	}
	return e.rows(*link, country, li.Find("sup.reference a"))
}

// tableRow extracts the partner of a table row: the first cell with an
// article link names the partner and the following cell its country.
func (e *extractor) tableRow(tr *goquery.Selection) []sparql.Row {
	cells := tr.ChildrenFiltered("td")
	for i := range cells.Length() {
		cell := cells.Eq(i)
		link := e.partnerLink(cell, func(*goquery.Selection) bool { return true })
		if link == nil {
			continue
		}
		country := ""
		if i+1 < cells.Length() {
			country = cleanText(ownText(cells.Eq(i + 1)))
		}
		return e.rows(*link, country, tr.Find("sup.reference a"))
	}
	return nil
}

type partnerLink struct {
	label string
	url   string
}

// partnerLink returns the first article link in s accepted by owned. Flag
// icons, files, citations and links to missing pages are skipped.
func (e *extractor) partnerLink(s *goquery.Selection, owned func(*goquery.Selection) bool) *partnerLink {
	var found *partnerLink
	s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !owned(a) || a.HasClass("new") || a.HasClass("image") || a.HasClass("mw-file-description") {
			return true
		}
		if a.Closest(".flagicon, sup, .noprint, figure, .mw-cite-backlink").Length() > 0 {
			return true
		}
		href, _ := a.Attr("href")
		target, ok := e.articleURL(href)
		if !ok {
			return true
		}
		label := cleanText(a.Text())
		if label == "" {
			label, _ = a.Attr("title")
		}
		if label == "" {
			return true
		}
		found = &partnerLink{label: label, url: target}
		return false
	})
	return found
}

// articleURL resolves href and reports whether it names an article.
func (e *extractor) articleURL(href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if strings.Contains(ref.RawQuery, "redlink=1") || strings.Contains(ref.RawQuery, "action=edit") {
		return "", false
	}
	u := ref
	if e.base != nil {
		u = e.base.ResolveReference(ref)
	}
	u.RawQuery = ""
	u.Fragment = ""
	if u.Scheme == "http" || u.Scheme == "" {
		u.Scheme = "https"
	}
	title, ok := twins.TitleFromURL(u.String())
	if !ok || !twins.IsArticleTitle(title) {
		return "", false
	}
	return u.String(), true
}

// groupCountry returns the country named by the enclosing list item when
// partners are grouped by country.
func (e *extractor) groupCountry(li *goquery.Selection) string {
	parent := li.ParentsFiltered("li").First()
	if parent.Length() == 0 {
		return ""
	}
	c := parent.Clone()
	c.Find("ul, ol, sup, style").Remove()
	return cleanText(c.Text())
}

// rows emits one row per cited reference of the partner, or a single row
// when none is cited.
func (e *extractor) rows(link partnerLink, country string, cites *goquery.Selection) []sparql.Row {
	base := sparql.Row{
		normalize.VarTargetLabel: sparql.StringValue(link.label),
		normalize.VarTargetURL:   sparql.URLValue(link.url),
	}
	if country != "" {
		base[normalize.VarCountry] = sparql.StringValue(country)
	}

	var rows []sparql.Row
	seen := make(map[string]bool)
	cites.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		id, ok := strings.CutPrefix(href, "#")
		if !ok || id == "" || seen[id] {
			return
		}
		seen[id] = true

		row := make(sparql.Row, len(base)+5)
		for k, v := range base {
			row[k] = v
		}
		row[normalize.VarRefNode] = sparql.StringValue(id)
		ref := e.reference(id)
		if ref.url != "" {
			row[normalize.VarReferenceURL] = sparql.URLValue(ref.url)
		}
		if ref.title != "" {
			row[normalize.VarReferenceName] = sparql.StringValue(ref.title)
		}
		if ref.publisher != "" {
			row[normalize.VarReferencePublisher] = sparql.StringValue(ref.publisher)
		}
		if ref.retrieved != "" {
			row[normalize.VarRetrieved] = sparql.StringValue(ref.retrieved)
		}
		rows = append(rows, row)
	})
	if len(rows) == 0 {
		rows = append(rows, base)
	}
	return rows
}

// reference parses the footnote with the given id, caching the result.
func (e *extractor) reference(id string) reference {
	if ref, ok := e.refs[id]; ok {
		return ref
	}

	var ref reference
	note := e.doc.Find("li[id], span[id], div[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
	if note.Length() > 0 {
		text := note.Find(".reference-text")
		if text.Length() == 0 {
			text = note
		}
		if a := text.Find("a.external").First(); a.Length() > 0 {
			ref.url, _ = a.Attr("href")
			ref.title = strings.Trim(cleanText(a.Text()), `"“”`)
		}
		ref.publisher = cleanText(text.Find("cite i").First().Text())
		if m := retrievedPattern.FindStringSubmatch(text.Text()); m != nil {
			ref.retrieved = strings.TrimSpace(m[1])
		}
		if strings.HasPrefix(ref.url, "//") {
			ref.url = "https:" + ref.url
		}
	}
	e.refs[id] = ref
	return ref
}

// ownText returns the text of s without nested lists, citations and
// style blocks.
func ownText(s *goquery.Selection) string {
	c := s.Clone()
	c.Find("ul, ol, sup, style, .flagicon").Remove()
	return c.Text()
}

// trailingText returns what follows label in text, which is the country
// in entries like "Kamenz, Germany".
func trailingText(text, label string) string {
	text = strings.Join(strings.Fields(text), " ")
	i := strings.Index(text, label)
	if i < 0 {
		return ""
	}
	rest := text[i+len(label):]
	if j := strings.IndexAny(rest, "([;"); j >= 0 {
		rest = rest[:j]
	}
	return cleanText(strings.Trim(rest, ", –-:' "))
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
