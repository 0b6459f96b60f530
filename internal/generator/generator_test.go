package generator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eidrag/internal/domain"
	"eidrag/internal/upstream"
)

type scripted struct {
	replies map[string]error
	text    string
	calls   []string
}

func (s *scripted) Complete(_ context.Context, model, prompt string) (string, error) {
	s.calls = append(s.calls, model)
	if err := s.replies[model]; err != nil {
		return "", err
	}
	if s.text != "" {
		return s.text, nil
	}
	return "answer from " + model, nil
}

func status(code int) error {
	return &upstream.APIError{Provider: "gemini", Operation: "generateContent", Status: code}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, NextModel, Classify(status(http.StatusNotFound)))
	assert.Equal(t, NextModel, Classify(status(http.StatusTooManyRequests)))
	assert.Equal(t, Abort, Classify(status(http.StatusForbidden)))
	assert.Equal(t, Abort, Classify(status(http.StatusInternalServerError)))
	assert.Equal(t, Abort, Classify(errors.New("dial tcp: connection refused")))
}

func TestComplete_FallsBackOnNotFound(t *testing.T) {
	c := &scripted{replies: map[string]error{"primary": status(http.StatusNotFound)}}
	g := New(c, "primary", []string{"fallback-1", "fallback-2"})

	res, err := g.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "fallback-1", res.Model)
	assert.Equal(t, "answer from fallback-1", res.Text)
	assert.Equal(t, []string{"primary", "fallback-1"}, c.calls)
}

func TestComplete_FatalErrorStopsChain(t *testing.T) {
	c := &scripted{replies: map[string]error{"primary": status(http.StatusUnauthorized)}}
	g := New(c, "primary", []string{"fallback-1"})

	_, err := g.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, []string{"primary"}, c.calls)
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusOf(err))
	assert.False(t, IsUnavailable(err))
}

func TestComplete_AllFailReturnsLastError(t *testing.T) {
	c := &scripted{replies: map[string]error{
		"primary":    status(http.StatusNotFound),
		"fallback-1": status(http.StatusTooManyRequests),
	}}
	g := New(c, "primary", []string{"fallback-1", "primary", " "})

	_, err := g.Complete(context.Background(), "p")
	var chain *ChainError
	require.True(t, errors.As(err, &chain))
	assert.Len(t, chain.Attempts, 2)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusOf(err))
	assert.Contains(t, err.Error(), "primary")
	assert.Contains(t, err.Error(), "fallback-1")
	assert.True(t, IsUnavailable(err))
}

func TestComplete_NoModels(t *testing.T) {
	_, err := New(&scripted{}, "", nil).Complete(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("What is Eid?", []domain.Source{
		{Title: "Eid", Content: "Eid is a celebration."},
		{Title: "Zakat", Excerpt: "Only an excerpt."},
	})
	assert.Contains(t, p, "Islamic scholar assistant")
	assert.Contains(t, p, "Question: What is Eid?")
	assert.Contains(t, p, "Source: Eid\nContent: Eid is a celebration.\n\nSource: Zakat\nContent: Only an excerpt.")
	assert.Contains(t, p, "If the sources don't contain enough information, say so")
	assert.True(t, strings.HasSuffix(p, "Answer:"))
}

func TestRelatedQuestions(t *testing.T) {
	c := &scripted{text: "What is Eid al-Fitr?\n\n  When is Eid prayed?  \nQ3\nQ4\nQ5\nQ6"}
	got := New(c, "m", nil).RelatedQuestions(context.Background(), "Eid")
	assert.Equal(t, []string{"What is Eid al-Fitr?", "When is Eid prayed?", "Q3", "Q4", "Q5"}, got)
}

func TestRelatedQuestions_FailureYieldsEmpty(t *testing.T) {
	c := &scripted{replies: map[string]error{"m": errors.New("boom")}}
	got := New(c, "m", nil).RelatedQuestions(context.Background(), "Eid")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
