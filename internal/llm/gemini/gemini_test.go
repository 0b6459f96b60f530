package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eidrag/internal/gemini"
	"eidrag/internal/upstream"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		assert.Equal(t, "user", body.Contents[0].Role)
		assert.Equal(t, "What is Eid?", body.Contents[0].Parts[0].Text)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Eid is "},{"text":"a festival."}]}}]}`))
	}))
	defer srv.Close()

	c := NewCompleter(gemini.New(gemini.Config{BaseURL: srv.URL, APIKey: "k"}))
	text, err := c.Complete(context.Background(), "gemini-1.5-flash", "What is Eid?")
	require.NoError(t, err)
	assert.Equal(t, "Eid is a festival.", text)
}

func TestComplete_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"models/x is not found"}}`))
	}))
	defer srv.Close()

	c := NewCompleter(gemini.New(gemini.Config{BaseURL: srv.URL, APIKey: "k"}))
	_, err := c.Complete(context.Background(), "x", "hi")
	assert.Equal(t, http.StatusNotFound, upstream.StatusOf(err))
}

func TestListModels_Paginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"models":[{"name":"models/a","supportedGenerationMethods":["generateContent"]}],"nextPageToken":"p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"models/b","supportedGenerationMethods":["embedContent"]}]}`))
	}))
	defer srv.Close()

	c := NewCompleter(gemini.New(gemini.Config{BaseURL: srv.URL, APIKey: "k"}))
	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "models/b", models[1].Name)
}
