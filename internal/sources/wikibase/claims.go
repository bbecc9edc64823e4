package wikibase

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/logging"
	"github.com/agentstation/twinmap/pkg/twins"
)

// GregorianCalendar is the calendar model of every time value written.
const GregorianCalendar = "http://www.wikidata.org/entity/Q1985727"

// Summary returns the edit summary used when adding partner as a twin city.
func Summary(partner string) string {
	return "Added twin city " + partner
}

type timeValue struct {
	Time          string `json:"time"`
	Timezone      int    `json:"timezone"`
	Before        int    `json:"before"`
	After         int    `json:"after"`
	Precision     int    `json:"precision"`
	CalendarModel string `json:"calendarmodel"`
}

func newTimeValue(d twins.Date) timeValue {
	return timeValue{Time: d.GraphTime(), Precision: d.Precision(), CalendarModel: GregorianCalendar}
}

type itemValue struct {
	EntityType string `json:"entity-type"`
	ID         string `json:"id"`
}

type monolingualValue struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type dataValue struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type snak struct {
	SnakType  string    `json:"snaktype"`
	Property  string    `json:"property"`
	DataValue dataValue `json:"datavalue"`
}

type claimResponse struct {
	Claim struct {
		ID string `json:"id"`
	} `json:"claim"`
}

// AddTwin adds a twinned-with statement on subject pointing at partnerID,
// with the start and end qualifiers and the references of partner. It
// returns the statement id.
func (c *Client) AddTwin(ctx context.Context, subject, partnerID string, partner twins.Record) (string, error) {
	if !twins.IsEntityID(subject) || !twins.IsEntityID(partnerID) {
		return "", errors.NewValidationError("entity", subject+" -> "+partnerID, "both ends must be entity ids")
	}
	log := logging.FromContext(ctx).With().
		Str("subject", subject).
		Str("partner", partnerID).
		Logger()

	value, err := json.Marshal(itemValue{EntityType: "item", ID: partnerID})
	if err != nil {
		return "", errors.WrapResource("build", "claim", subject, err)
	}
	var created claimResponse
	err = c.edit(ctx, url.Values{
		"action":   {"wbcreateclaim"},
		"entity":   {subject},
		"property": {constants.PropertyTwinnedWith},
		"snaktype": {"value"},
		"value":    {string(value)},
		"summary":  {Summary(partner.PartnerName)},
	}, &created)
	if err != nil {
		return "", err
	}
	guid := created.Claim.ID
	if guid == "" {
		return "", &errors.APIError{Service: serviceName, Message: "wbcreateclaim returned no claim id", Endpoint: c.endpoint}
	}
	log.Info().Str("claim", guid).Msg("Twin city claim created")

	qualifiers := []struct {
		property string
		date     *twins.Date
	}{
		{constants.PropertyStartTime, partner.Start},
		{constants.PropertyEndTime, partner.End},
	}
	for _, q := range qualifiers {
		if q.date == nil {
			continue
		}
		if err := c.setQualifier(ctx, guid, q.property, *q.date); err != nil {
			return guid, err
		}
	}

	for _, ref := range partner.References {
		snaks := c.referenceSnaks(ref)
		if len(snaks) == 0 {
			continue
		}
		if err := c.setReference(ctx, guid, snaks); err != nil {
			return guid, err
		}
	}
	return guid, nil
}

func (c *Client) setQualifier(ctx context.Context, guid, property string, d twins.Date) error {
	value, err := json.Marshal(newTimeValue(d))
	if err != nil {
		return errors.WrapResource("build", "qualifier", guid, err)
	}
	return c.edit(ctx, url.Values{
		"action":   {"wbsetqualifier"},
		"claim":    {guid},
		"property": {property},
		"snaktype": {"value"},
		"value":    {string(value)},
	}, nil)
}

func (c *Client) setReference(ctx context.Context, guid string, snaks map[string][]snak) error {
	data, err := json.Marshal(snaks)
	if err != nil {
		return errors.WrapResource("build", "reference", guid, err)
	}
	return c.edit(ctx, url.Values{
		"action":    {"wbsetreference"},
		"statement": {guid},
		"snaks":     {string(data)},
	}, nil)
}

// referenceSnaks converts ref into reference snaks. The publisher is only
// written when it names an entity, since the property is item-valued.
func (c *Client) referenceSnaks(ref twins.Reference) map[string][]snak {
	snaks := make(map[string][]snak)
	add := func(property string, v dataValue) {
		snaks[property] = append(snaks[property], snak{SnakType: "value", Property: property, DataValue: v})
	}

	if ref.Retrieved != nil {
		add(constants.PropertyRetrieved, dataValue{Type: "time", Value: newTimeValue(*ref.Retrieved)})
	}
	if ref.URL != "" {
		add(constants.PropertyReferenceURL, dataValue{Type: "string", Value: ref.URL})
	}
	if ref.Title != "" {
		add(constants.PropertyTitle, dataValue{Type: "monolingualtext", Value: monolingualValue{Text: ref.Title, Language: c.language}})
	}
	if id := strings.TrimSpace(ref.Publisher); twins.IsEntityID(id) {
		add(constants.PropertyPublisher, dataValue{Type: "wikibase-entityid", Value: itemValue{EntityType: "item", ID: id}})
	}
	return snaks
}
