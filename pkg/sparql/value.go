// Package sparql models raw query result rows as tagged values and decodes
// the SPARQL 1.1 JSON results format into them.
package sparql

import (
	"github.com/agentstation/twinmap/pkg/twins"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	// Absent marks an unbound variable.
	Absent Kind = iota
	// String is a plain or language-tagged literal.
	String
	// URL is an IRI binding.
	URL
	// Date is a literal typed xsd:date or xsd:dateTime.
	Date
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case URL:
		return "url"
	case Date:
		return "date"
	default:
		return "absent"
	}
}

// Value is one variable binding of a result row. The zero value is Absent.
type Value struct {
	kind Kind
	text string
	lang string
	date twins.Date
	// raw keeps the lexical form of date literals, which may not parse.
	raw string
}

// StringValue returns a String value.
func StringValue(s string) Value {
	return Value{kind: String, text: s}
}

// LangValue returns a language-tagged String value.
func LangValue(s, lang string) Value {
	return Value{kind: String, text: s, lang: lang}
}

// URLValue returns a URL value.
func URLValue(u string) Value {
	return Value{kind: URL, text: u}
}

// DateValue returns a Date value from its lexical form. A lexical form that
// does not parse is kept and reported by AsDate.
func DateValue(lexical string) Value {
	v := Value{kind: Date, raw: lexical}
	if d, err := twins.ParseDate(lexical); err == nil {
		v.date = d
		v.text = d.String()
	}
	return v
}

// Kind returns the variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether the variable was unbound.
func (v Value) IsAbsent() bool {
	return v.kind == Absent
}

// Lang returns the language tag of a String value.
func (v Value) Lang() string {
	return v.lang
}

// Text returns the lexical form of any bound value.
func (v Value) Text() string {
	if v.kind == Date {
		return v.raw
	}
	return v.text
}

// AsString returns the text of a String value.
func (v Value) AsString() (string, bool) {
	return v.text, v.kind == String
}

// AsURL returns the IRI of a URL value.
func (v Value) AsURL() (string, bool) {
	return v.text, v.kind == URL
}

// AsDate returns the date of a Date value, or of a String value whose text
// is a parsable date. ok is false for other kinds and unparsable lexicals.
func (v Value) AsDate() (twins.Date, bool) {
	switch v.kind {
	case Date:
		if v.text == "" {
			return twins.Date{}, false
		}
		return v.date, true
	case String:
		d, err := twins.ParseDate(v.text)
		return d, err == nil
	default:
		return twins.Date{}, false
	}
}

// Row maps variable names to values. Looking up an unbound variable yields
// an Absent value.
type Row map[string]Value

// Get returns the value bound to name.
func (r Row) Get(name string) Value {
	return r[name]
}

// RowSet is an ordered sequence of rows together with the projected variables.
type RowSet struct {
	Vars []string
	Rows []Row
}

// Len returns the number of rows.
func (rs *RowSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}
