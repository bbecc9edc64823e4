// Package query builds the SPARQL queries sent to the graph endpoint. Each
// query kind is a fixed template with a single substitution point for the
// city identifier.
package query

import (
	"embed"
	"fmt"
	"net/url"
	"strings"

	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/twins"
)

//go:embed templates/*.rq
var templateFS embed.FS

// Placeholder is the substitution point for the city identifier.
const Placeholder = "{{CITY_URL}}"

const (
	languagePlaceholder    = "{{LANGUAGE}}"
	articleHostPlaceholder = "{{ARTICLE_HOST}}"
)

// Kind selects a query template.
type Kind int

const (
	// IdentifierLookup resolves an article URL to graph entity ids.
	IdentifierLookup Kind = iota
	// TwinningBasic lists twinned partners with start and end qualifiers.
	TwinningBasic
	// TwinningWithReferences additionally lists reference sub-fields per reference node.
	TwinningWithReferences
)

var kindNames = map[Kind]string{
	IdentifierLookup:       "identifier",
	TwinningBasic:          "basic",
	TwinningWithReferences: "references",
}

var kindTemplates = map[Kind]string{
	IdentifierLookup:       "templates/identifier.rq",
	TwinningBasic:          "templates/basic.rq",
	TwinningWithReferences: "templates/references.rq",
}

// Kinds returns every query kind in declaration order.
func Kinds() []Kind {
	return []Kind{IdentifierLookup, TwinningBasic, TwinningWithReferences}
}

// String returns the short name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a kind name. Both the short names (identifier, basic,
// references) and the upper-case selector names (TWINNING_BASIC) are accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "identifier", "identifier_lookup", "lookup":
		return IdentifierLookup, nil
	case "basic", "twinning_basic":
		return TwinningBasic, nil
	case "references", "twinning_with_references", "refs":
		return TwinningWithReferences, nil
	}
	return 0, &errors.ValidationError{
		Field:   "kind",
		Value:   s,
		Message: "must be one of identifier, basic, references",
	}
}

// Builder substitutes city identifiers into the query templates.
// A Builder is immutable and safe for concurrent use.
type Builder struct {
	language    string
	articleHost string
	templates   map[Kind]string
}

// Option configures a Builder.
type Option func(*Builder) error

// WithLanguage sets the label service language and, unless an article host
// is set explicitly, the encyclopedia edition.
func WithLanguage(lang string) Option {
	return func(b *Builder) error {
		lang = strings.TrimSpace(lang)
		if lang == "" || strings.ContainsAny(lang, `"\ `) {
			return &errors.ValidationError{Field: "language", Value: lang, Message: "must be a language code"}
		}
		b.language = lang
		return nil
	}
}

// WithArticleHost sets the host article URLs must live on, e.g. de.wikipedia.org.
func WithArticleHost(host string) Option {
	return func(b *Builder) error {
		host = strings.TrimSpace(host)
		if host == "" || strings.ContainsAny(host, `/"\ `) {
			return &errors.ValidationError{Field: "article_host", Value: host, Message: "must be a bare host name"}
		}
		b.articleHost = host
		return nil
	}
}

// NewBuilder creates a Builder. Templates are loaded from the embedded files.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{language: constants.DefaultArticleLanguage}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	if b.articleHost == "" {
		b.articleHost = b.language + constants.ArticleHostSuffix
	}

	b.templates = make(map[Kind]string, len(kindTemplates))
	for kind, name := range kindTemplates {
		data, err := templateFS.ReadFile(name)
		if err != nil {
			return nil, errors.WrapIO("read", name, err)
		}
		b.templates[kind] = string(data)
	}
	return b, nil
}

// Language returns the configured label language.
func (b *Builder) Language() string {
	return b.language
}

// ArticleHost returns the host article identifiers must use.
func (b *Builder) ArticleHost() string {
	return b.articleHost
}

// Build returns the query text for kind with id substituted. It has no side
// effects and fails with *errors.InvalidIdentifierError when id is not an
// absolute URL in the namespace the kind expects.
func (b *Builder) Build(id twins.CityID, kind Kind) (string, error) {
	tmpl, ok := b.templates[kind]
	if !ok {
		return "", &errors.ValidationError{Field: "kind", Value: int(kind), Message: "unknown query kind"}
	}
	if err := b.validate(id, kind); err != nil {
		return "", err
	}

	return strings.NewReplacer(
		Placeholder, string(id),
		languagePlaceholder, b.language,
		articleHostPlaceholder, b.articleHost,
	).Replace(tmpl), nil
}

// validate checks id against the namespace kind expects.
func (b *Builder) validate(id twins.CityID, kind Kind) error {
	raw := string(id)
	if raw == "" {
		return &errors.InvalidIdentifierError{Value: raw, Reason: "empty identifier"}
	}
	// Characters that would break out of an IRIREF.
	if strings.ContainsAny(raw, "<>\"{}|\\^` \t\n\r") {
		return &errors.InvalidIdentifierError{Value: raw, Reason: "contains characters not allowed in an IRI"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &errors.InvalidIdentifierError{Value: raw, Reason: err.Error()}
	}
	if !u.IsAbs() || u.Host == "" {
		return &errors.InvalidIdentifierError{Value: raw, Reason: "not an absolute URL"}
	}

	if kind != IdentifierLookup && id.IsEntity() {
		if !strings.HasPrefix(raw, constants.WikidataEntityPrefix) {
			return &errors.InvalidIdentifierError{Value: raw, Reason: "entity IRIs must use " + constants.WikidataEntityPrefix}
		}
		return nil
	}

	if u.Scheme != "https" || u.Host != b.articleHost || u.RawQuery != "" || u.Fragment != "" {
		return &errors.InvalidIdentifierError{
			Value:  raw,
			Reason: fmt.Sprintf("expected an article URL of the form https://%s/wiki/<Title>", b.articleHost),
		}
	}
	title, ok := twins.TitleFromURL(raw)
	if !ok || !twins.IsArticleTitle(title) {
		return &errors.InvalidIdentifierError{Value: raw, Reason: "not in the article namespace"}
	}
	return nil
}

var defaultBuilder = mustBuilder()

func mustBuilder() *Builder {
	b, err := NewBuilder()
	if err != nil {
		panic(err)
	}
	return b
}

// Build builds a query with the default builder (English edition).
func Build(id twins.CityID, kind Kind) (string, error) {
	return defaultBuilder.Build(id, kind)
}
