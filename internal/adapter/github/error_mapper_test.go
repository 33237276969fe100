package github_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/prwatch/internal/adapter/github"
	"github.com/bkyoung/prwatch/internal/adapter/httpx"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantType   httpx.ErrorType
		retryable  bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Bad credentials"}`, httpx.ErrTypeAuthentication, false},
		{"forbidden", http.StatusForbidden, `{"message":"Forbidden"}`, httpx.ErrTypeAuthentication, false},
		{"rate limited", http.StatusTooManyRequests, `{"message":"rate limit exceeded"}`, httpx.ErrTypeRateLimit, true},
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`, httpx.ErrTypeNotFound, false},
		{"validation", http.StatusUnprocessableEntity, `{"message":"Validation Failed"}`, httpx.ErrTypeValidation, false},
		{"server error", http.StatusInternalServerError, ``, httpx.ErrTypeServiceUnavailable, true},
		{"bad gateway", http.StatusBadGateway, ``, httpx.ErrTypeServiceUnavailable, true},
		{"teapot", http.StatusTeapot, ``, httpx.ErrTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := github.MapHTTPError(tt.statusCode, []byte(tt.body))

			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.statusCode, err.StatusCode)
		})
	}
}

func TestMapHTTPError_IncludesValidationDetails(t *testing.T) {
	body := `{"message":"Validation Failed","errors":[{"resource":"PullRequestReviewComment","field":"position","code":"invalid"}]}`

	err := github.MapHTTPError(http.StatusUnprocessableEntity, []byte(body))

	assert.Contains(t, err.Message, "Validation Failed")
	assert.Contains(t, err.Message, "position")
}

func TestMapHTTPError_NonJSONBody(t *testing.T) {
	err := github.MapHTTPError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))

	assert.Contains(t, err.Message, "HTTP 502")
}
