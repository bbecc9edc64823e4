package twins

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/twinmap/pkg/errors"
)

// Date is a calendar date with optional reduced precision. Month and Day are
// zero when the source only knows the year (or year and month).
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// dayLayouts are tried in order for full-precision dates.
var dayLayouts = []string{
	"2006-01-02",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-1-2",
}

// ParseDate parses the date formats found in both sources: ISO dates,
// xsd:dateTime literals (with an optional leading '+'), day-month-year and
// month-day-year prose, month-year and bare years.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, &errors.ParseError{Format: "date", Message: "empty value"}
	}

	if strings.Contains(s, "T") {
		raw := strings.TrimPrefix(s, "+")
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return FromTime(t), nil
		}
		// Wikidata emits year-precision values like 1992-00-00T00:00:00Z.
		if d, ok := parseZeroPadded(raw); ok {
			return d, nil
		}
	}

	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}

	for _, layout := range []string{"January 2006", "Jan 2006", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Year: t.Year(), Month: t.Month()}, nil
		}
	}

	if t, err := time.Parse("2006", s); err == nil {
		return Date{Year: t.Year()}, nil
	}

	return Date{}, &errors.ParseError{Format: "date", Message: fmt.Sprintf("unrecognized date %q", s)}
}

// ParseLatestDate parses a value that may hold several whitespace-separated
// ISO dates (as access dates sometimes do) and returns the latest one.
func ParseLatestDate(s string) (Date, error) {
	if d, err := ParseDate(s); err == nil {
		return d, nil
	}

	var (
		latest Date
		found  bool
	)
	for _, field := range strings.Fields(s) {
		d, err := ParseDate(strings.Trim(field, ",;"))
		if err != nil {
			continue
		}
		if !found || d.After(latest) {
			latest, found = d, true
		}
	}
	if !found {
		return Date{}, &errors.ParseError{Format: "date", Message: fmt.Sprintf("no date in %q", s)}
	}
	return latest, nil
}

// FromTime returns the calendar date of t in UTC.
func FromTime(t time.Time) Date {
	t = t.UTC()
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func parseZeroPadded(s string) (Date, bool) {
	var y, m, d int
	if _, err := fmt.Sscanf(s, "%d-%d-%dT", &y, &m, &d); err != nil || y == 0 {
		return Date{}, false
	}
	if m < 0 || m > 12 || d < 0 || d > 31 || (m == 0 && d != 0) {
		return Date{}, false
	}
	return Date{Year: y, Month: time.Month(m), Day: d}, true
}

// Precision returns 11 for day, 10 for month and 9 for year precision,
// matching the graph's time precision codes.
func (d Date) Precision() int {
	switch {
	case d.Day != 0:
		return 11
	case d.Month != 0:
		return 10
	default:
		return 9
	}
}

// Time returns the first instant of the date in UTC.
func (d Date) Time() time.Time {
	month, day := d.Month, d.Day
	if month == 0 {
		month = time.January
	}
	if day == 0 {
		day = 1
	}
	return time.Date(d.Year, month, day, 0, 0, 0, 0, time.UTC)
}

// After reports whether d is later than other.
func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// Compare returns -1, 0 or +1. Unknown month or day sort first.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

// String formats the date with as much precision as it has.
func (d Date) String() string {
	switch d.Precision() {
	case 11:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
	case 10:
		return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
	default:
		return fmt.Sprintf("%04d", d.Year)
	}
}

// GraphTime formats the date as a graph time literal, +YYYY-MM-DDT00:00:00Z.
func (d Date) GraphTime() string {
	return fmt.Sprintf("+%04d-%02d-%02dT00:00:00Z", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateEqual compares two optional dates.
func DateEqual(a, b *Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
