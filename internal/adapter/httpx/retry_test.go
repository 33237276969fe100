package httpx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/prwatch/internal/adapter/httpx"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := httpx.DefaultRetryConfig()

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 2*time.Second, config.InitialBackoff)
	assert.Equal(t, 32*time.Second, config.MaxBackoff)
	assert.Equal(t, 2.0, config.Multiplier)
}

func TestExponentialBackoff(t *testing.T) {
	config := httpx.RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     32 * time.Second,
		Multiplier:     2.0,
	}

	tests := []struct {
		name    string
		attempt int
		minWait time.Duration
		maxWait time.Duration
	}{
		{"attempt 0", 0, 1500 * time.Millisecond, 2500 * time.Millisecond}, // 2s ± 25%
		{"attempt 1", 1, 3 * time.Second, 5 * time.Second},                 // 4s ± 25%
		{"attempt 4", 4, 24 * time.Second, 32 * time.Second},               // 32s (capped)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 10; i++ {
				backoff := httpx.ExponentialBackoff(tt.attempt, config)
				assert.GreaterOrEqual(t, backoff, tt.minWait, "backoff too short")
				assert.LessOrEqual(t, backoff, tt.maxWait, "backoff too long")
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"generic error", errors.New("boom"), false},
		{"retryable typed error", &httpx.Error{Type: httpx.ErrTypeRateLimit, Retryable: true}, true},
		{"non-retryable typed error", &httpx.Error{Type: httpx.ErrTypeAuthentication, Retryable: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, httpx.ShouldRetry(tt.err))
		})
	}
}

func TestRetryWithBackoff_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &httpx.Error{Type: httpx.ErrTypeServiceUnavailable, Retryable: true}
		}
		return nil
	}

	config := httpx.RetryConfig{
		MaxRetries:     5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}

	err := httpx.RetryWithBackoff(context.Background(), op, config)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_NonRetryableFailsFast(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		return &httpx.Error{Type: httpx.ErrTypeInvalidRequest, Retryable: false}
	}

	err := httpx.RetryWithBackoff(context.Background(), op, httpx.DefaultRetryConfig())
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := httpx.RetryWithBackoff(ctx, func(ctx context.Context) error {
		t.Fatal("operation must not run after cancellation")
		return nil
	}, httpx.DefaultRetryConfig())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedactURLSecrets(t *testing.T) {
	input := "request to https://api.example.com/x?token=abc123&page=2 failed"
	got := httpx.RedactURLSecrets(input)

	assert.NotContains(t, got, "abc123")
	assert.Contains(t, got, "token=[REDACTED]")
	assert.Contains(t, got, "page=2")
}

func TestTruncateForLogging(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, httpx.TruncateForLogging(short))

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	got := httpx.TruncateForLogging(string(long))
	assert.Less(t, len(got), 500)
	assert.Contains(t, got, "truncated")
}
