package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eidrag/internal/gemini"
	"eidrag/internal/upstream"
)

func TestEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-embedding-001:embedContent", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 3, body["outputDimensionality"])
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	}))
	defer srv.Close()

	e := NewEmbedder(gemini.New(gemini.Config{BaseURL: srv.URL, APIKey: "k"}), Config{OutputDim: 3})
	assert.Equal(t, 3, e.Dimension())
	vec, err := e.Embed(context.Background(), "tawheed")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestEmbedder_BlankInputSkipsCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	e := NewEmbedder(gemini.New(gemini.Config{BaseURL: srv.URL, APIKey: "k"}), Config{})
	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, vec)
	assert.Zero(t, calls.Load())
}

func TestEmbedder_DimensionLearnedFromResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":{"values":[1,0]}}`))
	}))
	defer srv.Close()

	e := NewEmbedder(gemini.New(gemini.Config{BaseURL: srv.URL, APIKey: "k"}), Config{})
	assert.Zero(t, e.Dimension())
	_, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 2, e.Dimension())
}

func TestEmbedder_PropagatesQuotaErrorWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewEmbedder(gemini.New(gemini.Config{BaseURL: srv.URL, APIKey: "k"}), Config{})
	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusOf(err))
	assert.EqualValues(t, 1, calls.Load())
}
