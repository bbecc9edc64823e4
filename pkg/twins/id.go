package twins

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
)

var entityIDPattern = regexp.MustCompile(`^Q[1-9][0-9]*$`)

// nonArticleNamespaces are title prefixes that never name a city.
var nonArticleNamespaces = []string{
	"Category:", "File:", "Image:", "Help:", "Portal:", "Special:",
	"Talk:", "Template:", "User:", "Wikipedia:", "Module:", "Draft:",
}

// CityID is an opaque reference to a city: either an article URL such as
// https://en.wikipedia.org/wiki/Bautzen or a graph entity IRI such as
// http://www.wikidata.org/entity/Q14819.
type CityID string

// ParseCityID validates s and returns its canonical CityID. A bare entity id
// (Q14819) is expanded into its IRI.
func ParseCityID(s string) (CityID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &errors.InvalidIdentifierError{Value: s, Reason: "empty identifier"}
	}

	if entityIDPattern.MatchString(s) {
		return CityID(constants.WikidataEntityPrefix + s), nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", &errors.InvalidIdentifierError{Value: s, Reason: err.Error()}
	}
	if !u.IsAbs() || u.Host == "" {
		return "", &errors.InvalidIdentifierError{Value: s, Reason: "not an absolute URL"}
	}

	if id, ok := entityFromURL(u); ok {
		return CityID(constants.WikidataEntityPrefix + id), nil
	}

	if title, ok := articleTitle(u); ok {
		if !IsArticleTitle(title) {
			return "", &errors.InvalidIdentifierError{Value: s, Reason: "not in the article namespace"}
		}
		if u.Scheme != "https" && u.Scheme != "http" {
			return "", &errors.InvalidIdentifierError{Value: s, Reason: "unsupported scheme " + u.Scheme}
		}
		u.Scheme = "https"
		u.Path = strings.ReplaceAll(u.Path, " ", "_")
		u.RawPath = ""
		u.RawQuery = ""
		u.Fragment = ""
		return CityID(u.String()), nil
	}

	return "", &errors.InvalidIdentifierError{Value: s, Reason: "neither an article URL nor a graph entity IRI"}
}

// String returns the identifier as given.
func (id CityID) String() string {
	return string(id)
}

// EntityID returns the Q-identifier when id is a graph entity IRI.
func (id CityID) EntityID() (string, bool) {
	u, err := url.Parse(string(id))
	if err != nil {
		return "", false
	}
	return entityFromURL(u)
}

// IsEntity reports whether id is a graph entity IRI.
func (id CityID) IsEntity() bool {
	_, ok := id.EntityID()
	return ok
}

// ArticleHost returns the host of an article URL, e.g. en.wikipedia.org.
func (id CityID) ArticleHost() (string, bool) {
	u, err := url.Parse(string(id))
	if err != nil {
		return "", false
	}
	if _, ok := articleTitle(u); !ok {
		return "", false
	}
	return u.Host, true
}

// Title returns the human-readable article title, with underscores as
// spaces and percent-escapes decoded.
func (id CityID) Title() string {
	u, err := url.Parse(string(id))
	if err != nil {
		return ""
	}
	if title, ok := articleTitle(u); ok {
		return title
	}
	if eid, ok := entityFromURL(u); ok {
		return eid
	}
	return ""
}

// TitleFromURL decodes the article title of an encyclopedia URL.
func TitleFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	return articleTitle(u)
}

// IsEntityID reports whether s is a bare graph entity id such as Q64.
func IsEntityID(s string) bool {
	return entityIDPattern.MatchString(s)
}

// IsArticleTitle reports whether title lives in the main article namespace.
func IsArticleTitle(title string) bool {
	if title == "" {
		return false
	}
	for _, ns := range nonArticleNamespaces {
		if strings.HasPrefix(title, ns) {
			return false
		}
	}
	return true
}

func entityFromURL(u *url.URL) (string, bool) {
	if u.Host != "www.wikidata.org" && u.Host != "wikidata.org" {
		return "", false
	}
	for _, prefix := range []string{"/entity/", "/wiki/"} {
		if rest, ok := strings.CutPrefix(u.Path, prefix); ok && entityIDPattern.MatchString(rest) {
			return rest, true
		}
	}
	return "", false
}

func articleTitle(u *url.URL) (string, bool) {
	if !strings.HasSuffix(u.Host, constants.ArticleHostSuffix) {
		return "", false
	}
	title, ok := strings.CutPrefix(u.Path, "/wiki/")
	if !ok || title == "" {
		return "", false
	}
	return strings.ReplaceAll(title, "_", " "), true
}
