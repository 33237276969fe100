package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/prwatch/internal/adapter/notify"
)

func TestNotify_PostsJSON(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	w := notify.NewWebhook(server.URL)
	require.NoError(t, w.Notify(context.Background(), "reviewed acme/widgets#7"))

	assert.Equal(t, "reviewed acme/widgets#7", got["text"])
}

func TestNotify_EmptyURLIsNoOp(t *testing.T) {
	w := notify.NewWebhook("")
	assert.NoError(t, w.Notify(context.Background(), "ignored"))
}

func TestNotify_ErrorStatusReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	w := notify.NewWebhook(server.URL)
	err := w.Notify(context.Background(), "msg")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
