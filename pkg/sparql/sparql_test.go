package sparql_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/sparql"
)

const twinningResults = `{
  "head": {"vars": ["targetId", "targetLabel", "starttime", "refnode", "referenceUrl"]},
  "results": {"bindings": [
    {
      "targetId": {"type": "uri", "value": "http://www.wikidata.org/entity/Q6474"},
      "targetLabel": {"type": "literal", "value": "Kamenz", "xml:lang": "en"},
      "starttime": {"type": "literal", "datatype": "http://www.w3.org/2001/XMLSchema#dateTime", "value": "1992-01-01T00:00:00Z"},
      "refnode": {"type": "uri", "value": "http://www.wikidata.org/reference/abc"},
      "referenceUrl": {"type": "uri", "value": "https://example.org/partners"}
    },
    {
      "targetId": {"type": "uri", "value": "http://www.wikidata.org/entity/Q1000"},
      "targetLabel": {"type": "literal", "value": "Q1000"}
    }
  ]}
}`

func TestDecode(t *testing.T) {
	rs, err := sparql.Decode(strings.NewReader(twinningResults))
	require.NoError(t, err)

	assert.Equal(t, []string{"targetId", "targetLabel", "starttime", "refnode", "referenceUrl"}, rs.Vars)
	require.Equal(t, 2, rs.Len())

	first := rs.Rows[0]
	id, ok := first.Get("targetId").AsURL()
	require.True(t, ok)
	assert.Equal(t, "http://www.wikidata.org/entity/Q6474", id)

	label := first.Get("targetLabel")
	assert.Equal(t, sparql.String, label.Kind())
	assert.Equal(t, "en", label.Lang())

	start, ok := first.Get("starttime").AsDate()
	require.True(t, ok)
	assert.Equal(t, 1992, start.Year)
	assert.Equal(t, time.January, start.Month)

	second := rs.Rows[1]
	assert.True(t, second.Get("starttime").IsAbsent())
	assert.True(t, second.Get("refnode").IsAbsent())
	assert.Equal(t, sparql.Absent, second.Get("nonexistent").Kind())
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>busy</html>"},
		{name: "missing results", body: `{"head": {"vars": []}}`},
		{name: "missing bindings", body: `{"head": {"vars": []}, "results": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sparql.Decode(strings.NewReader(tt.body))
			require.Error(t, err)
			var parseErr *errors.ParseError
			assert.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestDecodeEmptyBindings(t *testing.T) {
	rs, err := sparql.Decode(strings.NewReader(`{"head": {"vars": ["id"]}, "results": {"bindings": []}}`))
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
}

func TestValueVariants(t *testing.T) {
	var zero sparql.Value
	assert.True(t, zero.IsAbsent())
	_, ok := zero.AsString()
	assert.False(t, ok)

	s := sparql.StringValue("Göttingen")
	text, ok := s.AsString()
	assert.True(t, ok)
	assert.Equal(t, "Göttingen", text)
	_, ok = s.AsURL()
	assert.False(t, ok)

	u := sparql.URLValue("https://en.wikipedia.org/wiki/G%C3%B6ttingen")
	assert.Equal(t, sparql.URL, u.Kind())
	assert.Equal(t, "url", u.Kind().String())

	bad := sparql.DateValue("sometime in spring")
	assert.Equal(t, sparql.Date, bad.Kind())
	assert.Equal(t, "sometime in spring", bad.Text())
	_, ok = bad.AsDate()
	assert.False(t, ok)

	prose := sparql.StringValue("2 March 2020")
	d, ok := prose.AsDate()
	require.True(t, ok)
	assert.Equal(t, "2020-03-02", d.String())

	var nilSet *sparql.RowSet
	assert.Equal(t, 0, nilSet.Len())
}
