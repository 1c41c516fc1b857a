package toolerr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeJSONForToolError(t *testing.T) {
	err := New(CodeNotFound, "Unknown instance 'prod'").WithContext("instance", "prod")

	payload := EnvelopeJSON(err, "req-1")

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(payload), &env))
	assert.Equal(t, CodeNotFound, env.Code)
	assert.Equal(t, "Unknown instance 'prod'", env.Message)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Equal(t, "prod", env.Context["instance"])
}

func TestEnvelopeJSONMasksUnexpectedErrors(t *testing.T) {
	payload := EnvelopeJSON(errors.New("pq: connection refused at 10.0.0.3"), "req-2")

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(payload), &env))
	assert.Equal(t, CodeInternal, env.Code)
	assert.Equal(t, UnexpectedMessage, env.Message)
	assert.NotContains(t, payload, "10.0.0.3")
	assert.Nil(t, env.Context)
}

func TestEnvelopeJSONClassifiesTimeout(t *testing.T) {
	wrapped := fmt.Errorf("fetching logs: %w", context.DeadlineExceeded)

	payload := EnvelopeJSON(wrapped, "req-3")

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(payload), &env))
	assert.Equal(t, CodeTimeout, env.Code)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInvalidInput, CodeOf(New(CodeInvalidInput, "bad")))
	assert.Equal(t, CodeTimeout, CodeOf(context.DeadlineExceeded))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"not found", 404, CodeNotFound},
		{"bad request", 400, CodeInvalidInput},
		{"conflict", 409, CodeInvalidInput},
		{"server error", 500, CodeInternal},
		{"bad gateway", 502, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromHTTPStatus(tt.status, "Unable to fetch DAG", "nope")
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Contains(t, err.Message, fmt.Sprintf("HTTP %d", tt.status))
			assert.Contains(t, err.Message, "nope")
			assert.Equal(t, tt.status, err.Context["status"])
		})
	}
}

func TestTrimDetail(t *testing.T) {
	assert.Equal(t, "", TrimDetail("   \n"))
	assert.Equal(t, "short", TrimDetail("short"))

	long := strings.Repeat("x", 500)
	trimmed := TrimDetail(long)
	assert.Len(t, trimmed, 203)
	assert.True(t, strings.HasSuffix(trimmed, "..."))
}
