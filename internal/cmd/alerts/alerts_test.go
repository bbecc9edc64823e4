package alerts_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/twinmap/internal/cmd/alerts"
	"github.com/agentstation/twinmap/pkg/errors"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		level   alerts.Level
		message string
	}{
		{"invalid identifier", errors.NewInvalidIdentifierError("Łowicz", "not an absolute URL"), alerts.LevelError, "invalid city identifier"},
		{"malformed", errors.NewFetchError(errors.FetchMalformedResponse, "graph", "truncated", nil), alerts.LevelWarning, "data integrity warning"},
		{"retries exhausted", &errors.RetryError{Attempts: 3, Err: errors.NewFetchError(errors.FetchTimeout, "article", "", nil)}, alerts.LevelError, "source unavailable"},
		{"rate limited", errors.NewFetchError(errors.FetchRateLimited, "graph", "", nil), alerts.LevelError, "source unavailable: rate limited"},
		{"credentials", errors.NewAuthenticationError("wikibase", "bot_password", "missing", errors.ErrCredentialsRequired), alerts.LevelError, "credentials required"},
		{"other", fmt.Errorf("boom"), alerts.LevelError, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := alerts.FromError(tt.err)
			require.NotNil(t, alert)
			assert.Equal(t, tt.level, alert.Level)
			assert.Contains(t, alert.String(), tt.message)
		})
	}
	assert.Nil(t, alerts.FromError(nil))
}

func TestAlertWrite(t *testing.T) {
	var buf bytes.Buffer
	alert := alerts.NewSuccess("published").WithDetails("Q622395 -> Q661599")
	require.NoError(t, alert.Write(&buf))
	assert.Equal(t, "✓ published\n   Q622395 -> Q661599\n", buf.String())
}
