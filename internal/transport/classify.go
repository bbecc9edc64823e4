package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/twinmap/pkg/errors"
)

// classifyTransport maps a failed round trip to a fetch error kind.
func classifyTransport(ctx context.Context, req Request, err error) error {
	if ctxErr := ctx.Err(); ctxErr == context.Canceled {
		return fmt.Errorf("%w: %w", errors.ErrCanceled, err)
	}

	kind := errors.FetchNetwork
	var netErr net.Error
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		kind = errors.FetchTimeout
	}

	return &errors.FetchError{
		Kind:     kind,
		Source:   req.Source,
		Endpoint: req.URL,
		Detail:   err.Error(),
		Err:      err,
	}
}

// classifyStatus maps a non-2xx response to a fetch error kind. It returns
// nil for success.
func classifyStatus(req Request, resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	fe := &errors.FetchError{
		Source:     req.Source,
		Endpoint:   req.URL,
		StatusCode: resp.StatusCode,
		Detail:     snippet(body),
	}
	retryAfter, hasRetryAfter := ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		fe.Kind = errors.FetchRateLimited
		fe.RetryAfter = retryAfter
	case resp.StatusCode == http.StatusServiceUnavailable && hasRetryAfter:
		fe.Kind = errors.FetchRateLimited
		fe.RetryAfter = retryAfter
	case resp.StatusCode >= 500:
		fe.Kind = errors.FetchNetwork
	default:
		fe.Kind = errors.FetchMalformedResponse
	}
	return fe
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

// snippet keeps error details short.
func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
