// Package constants provides shared constants used throughout the twinmap codebase.
// This includes endpoints, timeouts, retry limits, file permissions and the
// graph property identifiers that the queries and the write client agree on.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for a single request to a remote source
	DefaultHTTPTimeout = 30 * time.Second

	// MinHTTPTimeout is the lowest accepted request timeout
	MinHTTPTimeout = 10 * time.Second

	// MaxHTTPTimeout is the highest accepted request timeout
	MaxHTTPTimeout = 60 * time.Second

	// CommandTimeout is the default timeout for one CLI command
	CommandTimeout = 5 * time.Minute

	// ShutdownTimeout bounds cleanup after a failed command
	ShutdownTimeout = 5 * time.Second
)

// Retry constants define the bounded backoff applied to retryable fetch failures
const (
	// MaxRetries is the total number of attempts for a retryable fetch
	MaxRetries = 3

	// RetryBackoff is the base backoff duration for retries
	RetryBackoff = 500 * time.Millisecond

	// MaxRetryBackoff is the maximum backoff duration for retries
	MaxRetryBackoff = 8 * time.Second

	// RetryMultiplier grows the backoff between attempts
	RetryMultiplier = 2.0
)

// Rate limiting constants
const (
	// DefaultRateLimit is the default number of requests per second against one endpoint
	DefaultRateLimit = 5

	// BurstSize is the token bucket burst size for rate limiting
	BurstSize = 1
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Endpoint constants
const (
	// WikidataSPARQLEndpoint is the public query service of the graph source
	WikidataSPARQLEndpoint = "https://query.wikidata.org/sparql"

	// WikidataAPIEndpoint is the write-capable action API of the graph source
	WikidataAPIEndpoint = "https://www.wikidata.org/w/api.php"

	// WikidataEntityPrefix is the IRI namespace of graph entities
	WikidataEntityPrefix = "http://www.wikidata.org/entity/"

	// DefaultArticleLanguage is the encyclopedia edition compared against
	DefaultArticleLanguage = "en"

	// ArticleHostSuffix completes a language code into an encyclopedia host
	ArticleHostSuffix = ".wikipedia.org"

	// DefaultUserAgent identifies the tool to the public endpoints
	DefaultUserAgent = "twinmap/dev (https://github.com/agentstation/twinmap)"
)

// Graph property constants
const (
	// PropertyTwinnedWith is the twinned administrative body property
	PropertyTwinnedWith = "P190"

	// PropertyStartTime qualifies when a twinning started
	PropertyStartTime = "P580"

	// PropertyEndTime qualifies when a twinning ended
	PropertyEndTime = "P582"

	// PropertyRetrieved is the reference retrieval date
	PropertyRetrieved = "P813"

	// PropertyReferenceURL is the reference URL
	PropertyReferenceURL = "P854"

	// PropertyPublisher is the reference publisher
	PropertyPublisher = "P123"

	// PropertyTitle is the reference title
	PropertyTitle = "P1476"
)

// Format constants
const (
	// DateFormat is the calendar date layout used in output
	DateFormat = "2006-01-02"

	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"
)
