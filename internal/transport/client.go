// Package transport is the HTTP layer shared by every remote source. It sets
// the user agent, applies a client-side rate limit, retries transient
// failures and maps every failure to an *errors.FetchError.
package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentstation/twinmap/internal/retry"
	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/logging"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 32 << 20

// Client provides HTTP client functionality with rate limiting and retries.
// It is safe for concurrent use.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	retry     retry.Config
	userAgent string
	auth      Authenticator
}

// Option configures a Client.
type Option func(*Client) error

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < constants.MinHTTPTimeout || d > constants.MaxHTTPTimeout {
			return &errors.ValidationError{
				Field:   "timeout",
				Value:   d,
				Message: "must be between " + constants.MinHTTPTimeout.String() + " and " + constants.MaxHTTPTimeout.String(),
			}
		}
		c.http.Timeout = d
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		if strings.TrimSpace(ua) == "" {
			return &errors.ValidationError{Field: "user_agent", Message: "cannot be empty"}
		}
		c.userAgent = ua
		return nil
	}
}

// WithRateLimit sets the requests per second and burst of the token bucket.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithRetry sets the retry policy for retryable failures.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) error {
		c.retry = cfg
		return nil
	}
}

// WithAuthenticator sets the request authenticator.
func WithAuthenticator(auth Authenticator) Option {
	return func(c *Client) error {
		if auth == nil {
			auth = &NoAuth{}
		}
		c.auth = auth
		return nil
	}
}

// WithCookieJar keeps session cookies between requests, as the write API
// login requires.
func WithCookieJar() Option {
	return func(c *Client) error {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return errors.WrapResource("create", "cookie jar", "", err)
		}
		c.http.Jar = jar
		return nil
	}
}

// WithHTTPClient replaces the underlying HTTP client. The transport owns it
// from then on: WithTimeout and WithCookieJar modify it, so pass a copy to
// keep a shared client unchanged.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return &errors.ValidationError{Field: "http_client", Message: "cannot be nil"}
		}
		c.http = hc
		return nil
	}
}

// New creates a new transport client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		http:      &http.Client{Timeout: constants.DefaultHTTPTimeout},
		limiter:   rate.NewLimiter(rate.Limit(constants.DefaultRateLimit), constants.BurstSize),
		retry:     retry.DefaultConfig(),
		userAgent: constants.DefaultUserAgent,
		auth:      &NoAuth{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Request describes one call to a remote source.
type Request struct {
	// Source names the side of the comparison, used in errors and logs.
	Source string
	Method string
	URL    string
	// Form is sent as the query string for GET and as the body for POST.
	Form   url.Values
	Header http.Header
}

// Response is a successful (2xx) response with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do sends req, retrying retryable failures. Non-2xx responses come back as
// *errors.FetchError; exhausted retries as *errors.RetryError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var out *Response
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		resp, err := c.once(ctx, req)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get is a convenience wrapper for a GET request.
func (c *Client) Get(ctx context.Context, source, rawURL string, params url.Values, header http.Header) (*Response, error) {
	return c.Do(ctx, Request{Source: source, Method: http.MethodGet, URL: rawURL, Form: params, Header: header})
}

// PostForm is a convenience wrapper for a form-encoded POST request.
func (c *Client) PostForm(ctx context.Context, source, rawURL string, form url.Values) (*Response, error) {
	return c.Do(ctx, Request{Source: source, Method: http.MethodPost, URL: rawURL, Form: form})
}

// once performs a single attempt.
func (c *Client) once(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyTransport(ctx, req, err)
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, errors.WrapResource("create", "request", req.Method+" "+req.URL, err)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(ctx, req, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classifyTransport(ctx, req, err)
	}

	logging.FromContext(ctx).Debug().
		Str("source", req.Source).
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("HTTP request completed")

	if err := classifyStatus(req, resp, body); err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var (
		body   io.Reader
		target = req.URL
	)
	if len(req.Form) > 0 {
		if method == http.MethodGet {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + req.Form.Encode()
		} else {
			body = strings.NewReader(req.Form.Encode())
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	c.auth.Apply(httpReq)
	return httpReq, nil
}
