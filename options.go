package twinmap

import (
	"net/http"
	"strings"
	"time"

	"github.com/agentstation/twinmap/internal/retry"
	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/present"
	"github.com/agentstation/twinmap/pkg/query"
	"github.com/agentstation/twinmap/pkg/sources"
	"github.com/agentstation/twinmap/pkg/twins"
)

// options holds the configuration of a Client.
type options struct {
	// Sources. nil means the public endpoints.
	graph   sources.Source
	article sources.Source

	sparqlEndpoint string
	apiEndpoint    string
	language       string
	queryKind      query.Kind
	cache          bool

	timeout    time.Duration
	userAgent  string
	rateLimit  float64
	retry      retry.Config
	httpClient *http.Client

	foldDiacritics bool
	fieldDiff      bool
	parallelFetch  bool

	// Publishing
	credentials present.Credentials
	twoSided    bool
	botEdits    bool
	writer      present.GraphWriter
}

// Option is a function that configures a Client.
type Option func(*options) error

func defaults() *options {
	return &options{
		sparqlEndpoint: constants.WikidataSPARQLEndpoint,
		apiEndpoint:    constants.WikidataAPIEndpoint,
		language:       constants.DefaultArticleLanguage,
		queryKind:      query.TwinningWithReferences,
		timeout:        constants.DefaultHTTPTimeout,
		userAgent:      constants.DefaultUserAgent,
		rateLimit:      constants.DefaultRateLimit,
		retry:          retry.DefaultConfig(),
		fieldDiff:      true,
	}
}

func newOptions(opts ...Option) (*options, error) {
	o := defaults()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithSources replaces both remote sources, e.g. with sources.Static for
// offline runs.
func WithSources(graph, article sources.Source) Option {
	return func(o *options) error {
		if err := WithGraphSource(graph)(o); err != nil {
			return err
		}
		return WithArticleSource(article)(o)
	}
}

// WithGraphSource replaces the graph side of a comparison.
func WithGraphSource(src sources.Source) Option {
	return func(o *options) error {
		if src == nil {
			return &errors.ValidationError{Field: "graph", Message: "source cannot be nil"}
		}
		if src.ID() != twins.SourceGraph {
			return &errors.ValidationError{Field: "graph", Value: src.ID().String(), Message: "source must feed the graph side"}
		}
		o.graph = src
		return nil
	}
}

// WithArticleSource replaces the article side of a comparison.
func WithArticleSource(src sources.Source) Option {
	return func(o *options) error {
		if src == nil {
			return &errors.ValidationError{Field: "article", Message: "source cannot be nil"}
		}
		if src.ID() != twins.SourceArticle {
			return &errors.ValidationError{Field: "article", Value: src.ID().String(), Message: "source must feed the article side"}
		}
		o.article = src
		return nil
	}
}

// WithSPARQLEndpoint sets the graph query service.
func WithSPARQLEndpoint(endpoint string) Option {
	return func(o *options) error {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			return &errors.ValidationError{Field: "sparql_endpoint", Value: endpoint, Message: "must be an http(s) URL"}
		}
		o.sparqlEndpoint = endpoint
		return nil
	}
}

// WithAPIEndpoint sets the graph write API.
func WithAPIEndpoint(endpoint string) Option {
	return func(o *options) error {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			return &errors.ValidationError{Field: "api_endpoint", Value: endpoint, Message: "must be an http(s) URL"}
		}
		o.apiEndpoint = endpoint
		return nil
	}
}

// WithLanguage sets the article edition compared against, e.g. "de".
func WithLanguage(lang string) Option {
	return func(o *options) error {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			return &errors.ValidationError{Field: "language", Message: "cannot be empty"}
		}
		o.language = lang
		return nil
	}
}

// WithQueryKind selects the twinning query sent to the graph.
func WithQueryKind(kind query.Kind) Option {
	return func(o *options) error {
		if kind == query.IdentifierLookup {
			return &errors.ValidationError{Field: "query_kind", Value: kind.String(), Message: "must be a twinning query"}
		}
		o.queryKind = kind
		return nil
	}
}

// WithCache allows the query service to answer from its cache. Disabled,
// every query is made unique.
func WithCache(enabled bool) Option {
	return func(o *options) error {
		o.cache = enabled
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < constants.MinHTTPTimeout || d > constants.MaxHTTPTimeout {
			return &errors.ValidationError{Field: "timeout", Value: d, Message: "must be between 10s and 60s"}
		}
		o.timeout = d
		return nil
	}
}

// WithRetry sets the total attempts and the first backoff of retryable fetches.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(o *options) error {
		if attempts < 1 {
			return &errors.ValidationError{Field: "retry_attempts", Value: attempts, Message: "must be at least 1"}
		}
		if baseDelay < 0 {
			return &errors.ValidationError{Field: "retry_base_delay", Value: baseDelay, Message: "cannot be negative"}
		}
		o.retry.MaxAttempts = attempts
		if baseDelay > 0 {
			o.retry.InitialDelay = baseDelay
		}
		return nil
	}
}

// WithRateLimit sets the requests per second per client. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(o *options) error {
		if rps < 0 {
			return &errors.ValidationError{Field: "rate_limit", Value: rps, Message: "cannot be negative"}
		}
		o.rateLimit = rps
		return nil
	}
}

// WithUserAgent sets the User-Agent sent to the public endpoints.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		if strings.TrimSpace(ua) == "" {
			return &errors.ValidationError{Field: "user_agent", Message: "cannot be empty"}
		}
		o.userAgent = ua
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return &errors.ValidationError{Field: "http_client", Message: "cannot be nil"}
		}
		o.httpClient = hc
		return nil
	}
}

// WithDiacriticFolding makes "Göttingen" and "Gottingen" the same partner.
func WithDiacriticFolding(enabled bool) Option {
	return func(o *options) error {
		o.foldDiacritics = enabled
		return nil
	}
}

// WithFieldDiff records field differences of matched partners.
func WithFieldDiff(enabled bool) Option {
	return func(o *options) error {
		o.fieldDiff = enabled
		return nil
	}
}

// WithParallelFetch fetches both sources concurrently.
func WithParallelFetch(enabled bool) Option {
	return func(o *options) error {
		o.parallelFetch = enabled
		return nil
	}
}

// WithCredentials sets the account used to publish partners.
func WithCredentials(creds present.Credentials) Option {
	return func(o *options) error {
		o.credentials = creds
		return nil
	}
}

// WithTwoSided also writes the reverse statement on the partner when publishing.
func WithTwoSided(enabled bool) Option {
	return func(o *options) error {
		o.twoSided = enabled
		return nil
	}
}

// WithBotEdits flags published edits as bot edits.
func WithBotEdits(enabled bool) Option {
	return func(o *options) error {
		o.botEdits = enabled
		return nil
	}
}

// WithGraphWriter replaces the write API client used by Publish.
func WithGraphWriter(w present.GraphWriter) Option {
	return func(o *options) error {
		if w == nil {
			return &errors.ValidationError{Field: "writer", Message: "cannot be nil"}
		}
		o.writer = w
		return nil
	}
}
