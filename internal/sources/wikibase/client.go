// Package wikibase talks to the Wikibase action API: entity lookups for
// identifier resolution and the claim, qualifier and reference edits used
// to publish a twin city back to the graph.
package wikibase

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/agentstation/twinmap/internal/transport"
	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/logging"
	"github.com/agentstation/twinmap/pkg/twins"
)

const serviceName = "wikibase"

// Resolver maps an article URL to the entity ids it is the sitelink of.
type Resolver func(ctx context.Context, city twins.CityID) ([]string, error)

// Client is a Wikibase action API client. It keeps the CSRF token of the
// logged-in session and is safe for concurrent use.
type Client struct {
	http     *transport.Client
	endpoint string
	language string
	bot      bool
	resolver Resolver

	mu   sync.Mutex
	csrf string
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithLanguage sets the language of labels and of reference titles that
// carry no language of their own.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithBotFlag marks edits as bot edits.
func WithBotFlag(enabled bool) Option {
	return func(c *Client) {
		c.bot = enabled
	}
}

// WithResolver replaces the sitelink lookup used to resolve article URLs.
func WithResolver(r Resolver) Option {
	return func(c *Client) {
		c.resolver = r
	}
}

// NewClient creates a Client. Use a transport client with a cookie jar so
// the login session survives between calls.
func NewClient(client *transport.Client, opts ...Option) *Client {
	c := &Client{
		http:     client,
		endpoint: constants.WikidataAPIEndpoint,
		language: constants.DefaultArticleLanguage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured API endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type envelope struct {
	Error *apiError `json:"error"`
}

// get sends a read request and decodes the answer into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	resp, err := c.http.Get(ctx, serviceName, c.endpoint, params, nil)
	if err != nil {
		return err
	}
	return c.decode(params.Get("action"), resp, out)
}

// post sends a write request and decodes the answer into out.
func (c *Client) post(ctx context.Context, form url.Values, out any) error {
	form.Set("format", "json")
	form.Set("formatversion", "2")
	resp, err := c.http.PostForm(ctx, serviceName, c.endpoint, form)
	if err != nil {
		return err
	}
	return c.decode(form.Get("action"), resp, out)
}

func (c *Client) decode(action string, resp *transport.Response, out any) error {
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return &errors.FetchError{
			Kind:       errors.FetchMalformedResponse,
			Source:     serviceName,
			Endpoint:   c.endpoint,
			StatusCode: resp.StatusCode,
			Detail:     "undecodable " + action + " response",
			Err:        err,
		}
	}
	if env.Error != nil {
		return &errors.APIError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Code:       env.Error.Code,
			Message:    env.Error.Info,
			Endpoint:   c.endpoint,
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.WrapParse("json", action, err)
	}
	return nil
}

type tokensResponse struct {
	Query struct {
		Tokens struct {
			LoginToken string `json:"logintoken"`
			CSRFToken  string `json:"csrftoken"`
		} `json:"tokens"`
	} `json:"query"`
}

// Login signs in with a bot password (Special:BotPasswords). The session
// cookie is kept by the transport's cookie jar.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.NewAuthenticationError(serviceName, "bot_password", "username and password are required", errors.ErrCredentialsRequired)
	}

	var tokens tokensResponse
	if err := c.get(ctx, url.Values{"action": {"query"}, "meta": {"tokens"}, "type": {"login"}}, &tokens); err != nil {
		return err
	}
	if tokens.Query.Tokens.LoginToken == "" {
		return errors.NewAuthenticationError(serviceName, "bot_password", "no login token returned", nil)
	}

	var login struct {
		Login struct {
			Result   string `json:"result"`
			Reason   string `json:"reason"`
			Username string `json:"lgusername"`
		} `json:"login"`
	}
	form := url.Values{
		"action":     {"login"},
		"lgname":     {username},
		"lgpassword": {password},
		"lgtoken":    {tokens.Query.Tokens.LoginToken},
	}
	if err := c.post(ctx, form, &login); err != nil {
		return err
	}
	if login.Login.Result != "Success" {
		reason := login.Login.Reason
		if reason == "" {
			reason = login.Login.Result
		}
		return errors.NewAuthenticationError(serviceName, "bot_password", reason, errors.ErrCredentialsInvalid)
	}

	c.mu.Lock()
	c.csrf = ""
	c.mu.Unlock()

	logging.FromContext(ctx).Info().
		Str("user", login.Login.Username).
		Msg("Logged in to graph write API")
	return nil
}

// token returns the CSRF token of the session, fetching it on first use.
func (c *Client) token(ctx context.Context, refresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.csrf != "" && !refresh {
		return c.csrf, nil
	}

	var tokens tokensResponse
	if err := c.get(ctx, url.Values{"action": {"query"}, "meta": {"tokens"}}, &tokens); err != nil {
		return "", err
	}
	// The anonymous token "+\" cannot edit.
	if t := tokens.Query.Tokens.CSRFToken; t == "" || t == `+\` {
		return "", errors.NewAuthenticationError(serviceName, "bot_password", "not logged in", errors.ErrCredentialsRequired)
	}
	c.csrf = tokens.Query.Tokens.CSRFToken
	return c.csrf, nil
}

// edit posts a token-protected write, refreshing the token once when the
// API reports it as stale.
func (c *Client) edit(ctx context.Context, form url.Values, out any) error {
	for attempt := 0; ; attempt++ {
		token, err := c.token(ctx, attempt > 0)
		if err != nil {
			return err
		}
		form.Set("token", token)
		if c.bot {
			form.Set("bot", "1")
		}

		err = c.post(ctx, form, out)
		var apiErr *errors.APIError
		if attempt == 0 && errors.As(err, &apiErr) && apiErr.Code == "badtoken" {
			logging.FromContext(ctx).Debug().Msg("CSRF token expired, refreshing")
			continue
		}
		return err
	}
}
