package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/twinmap/internal/retry"
	"github.com/agentstation/twinmap/internal/transport"
	"github.com/agentstation/twinmap/pkg/errors"
)

func newClient(t *testing.T, opts ...transport.Option) *transport.Client {
	t.Helper()
	cfg := retry.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond

	base := []transport.Option{
		transport.WithRetry(cfg),
		transport.WithRateLimit(0, 0),
		transport.WithUserAgent("twinmap-test/1.0"),
	}
	c, err := transport.New(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestGetSendsHeadersAndParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "twinmap-test/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"))
		assert.Equal(t, "SELECT 1", r.URL.Query().Get("query"))
		_, _ = io.WriteString(w, `ok`)
	}))
	defer server.Close()

	resp, err := newClient(t).Get(context.Background(), "graph", server.URL,
		url.Values{"query": {"SELECT 1"}},
		http.Header{"Accept": {"application/sparql-results+json"}})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestPostFormEncodesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "wbcreateclaim", r.PostForm.Get("action"))
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	_, err := newClient(t).PostForm(context.Background(), "graph", server.URL, url.Values{"action": {"wbcreateclaim"}})
	require.NoError(t, err)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		kind       errors.FetchKind
		attempts   int32
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, retryAfter: "0", kind: errors.FetchRateLimited, attempts: 3},
		{name: "unavailable with retry-after", status: http.StatusServiceUnavailable, retryAfter: "0", kind: errors.FetchRateLimited, attempts: 3},
		{name: "unavailable", status: http.StatusServiceUnavailable, kind: errors.FetchNetwork, attempts: 3},
		{name: "server error", status: http.StatusInternalServerError, kind: errors.FetchNetwork, attempts: 3},
		{name: "bad request", status: http.StatusBadRequest, kind: errors.FetchMalformedResponse, attempts: 1},
		{name: "not found", status: http.StatusNotFound, kind: errors.FetchMalformedResponse, attempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, "upstream says no")
			}))
			defer server.Close()

			_, err := newClient(t).Get(context.Background(), "graph", server.URL, nil, nil)
			require.Error(t, err)

			var fe *errors.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, "graph", fe.Source)
			assert.Equal(t, "upstream says no", fe.Detail)
			assert.Equal(t, tt.attempts, calls.Load())
		})
	}
}

func TestTimeoutIsRetriedThenUnavailable(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := newClient(t, transport.WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := c.Get(context.Background(), "article", server.URL, nil, nil)

	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
	assert.True(t, errors.IsSourceUnavailable(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNetworkErrorIsClassified(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := newClient(t).Get(context.Background(), "graph", addr, nil, nil)
	require.Error(t, err)

	var fe *errors.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, errors.FetchNetwork, fe.Kind)
	assert.True(t, errors.IsSourceUnavailable(err))
}

func TestCanceledContextIsNotAFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t).Get(ctx, "graph", server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	assert.False(t, errors.IsSourceUnavailable(err))
}

func TestBearerAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
	}))
	defer server.Close()

	c := newClient(t, transport.WithAuthenticator(&transport.BearerAuth{Token: "secret"}))
	_, err := c.Get(context.Background(), "graph", server.URL, nil, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	(&transport.NoAuth{}).Apply(req)
	(&transport.BearerAuth{}).Apply(req)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestOptionsValidation(t *testing.T) {
	_, err := transport.New(transport.WithTimeout(time.Second))
	assert.True(t, errors.IsValidationError(err))

	_, err = transport.New(transport.WithTimeout(2 * time.Minute))
	assert.True(t, errors.IsValidationError(err))

	_, err = transport.New(transport.WithUserAgent(" "))
	assert.True(t, errors.IsValidationError(err))

	_, err = transport.New(transport.WithHTTPClient(nil))
	assert.True(t, errors.IsValidationError(err))

	_, err = transport.New(transport.WithTimeout(15*time.Second), transport.WithCookieJar())
	assert.NoError(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	d, ok := transport.ParseRetryAfter("7", now)
	assert.True(t, ok)
	assert.Equal(t, 7*time.Second, d)

	d, ok = transport.ParseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now)
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, d)

	_, ok = transport.ParseRetryAfter("", now)
	assert.False(t, ok)
	_, ok = transport.ParseRetryAfter("soon", now)
	assert.False(t, ok)
}
