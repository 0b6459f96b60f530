package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eidrag/internal/domain"
	"eidrag/internal/upstream"
)

func TestModelPath(t *testing.T) {
	assert.Equal(t, "models/gemini-1.5-flash", ModelPath("gemini-1.5-flash"))
	assert.Equal(t, "models/gemini-1.5-flash", ModelPath("models/gemini-1.5-flash"))
}

func TestClient_PostSendsKeyAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "/models/m:embedContent", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret"})
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Post(context.Background(), "embed", "models/m:embedContent", map[string]string{}, &out))
	assert.True(t, out.OK)
}

func TestClient_ErrorCarriesRetryInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"45s"}]}}`))
	}))
	defer srv.Close()

	err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Get(context.Background(), "models", "models", nil)
	var apiErr *upstream.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, 45*time.Second, apiErr.RetryAfter)
}

func TestClient_UnconfiguredFails(t *testing.T) {
	err := New(Config{}).Get(context.Background(), "models", "models", nil)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
