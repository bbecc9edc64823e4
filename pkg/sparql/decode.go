package sparql

import (
	"encoding/json"
	"io"

	"github.com/agentstation/twinmap/pkg/errors"
)

const (
	xsdDate     = "http://www.w3.org/2001/XMLSchema#date"
	xsdDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"
)

// resultsDocument mirrors application/sparql-results+json.
type resultsDocument struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results *struct {
		Bindings []map[string]binding `json:"bindings"`
	} `json:"results"`
}

type binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Decode reads a SPARQL JSON results document. Missing results.bindings or
// an undecodable body yields a *errors.ParseError.
func Decode(r io.Reader) (*RowSet, error) {
	var doc resultsDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.WrapParse("sparql-results+json", "", err)
	}
	if doc.Results == nil || doc.Results.Bindings == nil {
		return nil, &errors.ParseError{
			Format:  "sparql-results+json",
			Message: "missing results.bindings",
		}
	}

	rs := &RowSet{
		Vars: doc.Head.Vars,
		Rows: make([]Row, 0, len(doc.Results.Bindings)),
	}
	for _, b := range doc.Results.Bindings {
		row := make(Row, len(b))
		for name, term := range b {
			row[name] = term.value()
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

func (b binding) value() Value {
	switch b.Type {
	case "uri":
		return URLValue(b.Value)
	case "literal", "typed-literal":
		if b.Datatype == xsdDate || b.Datatype == xsdDateTime {
			return DateValue(b.Value)
		}
		if b.Lang != "" {
			return LangValue(b.Value, b.Lang)
		}
		return StringValue(b.Value)
	case "bnode":
		// Blank nodes only serve as grouping keys.
		return StringValue("_:" + b.Value)
	default:
		return Value{}
	}
}
