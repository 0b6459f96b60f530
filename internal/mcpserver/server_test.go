package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eidrag/internal/domain"
)

type fakeRAG struct {
	query string
	urls  []string
}

func (f *fakeRAG) Search(_ context.Context, query, _ string) (domain.SearchResult, error) {
	f.query = query
	return domain.SearchResult{Query: query, Answer: "a"}, nil
}

func (f *fakeRAG) AnswerFromURLs(_ context.Context, query string, urls []string) (domain.SearchResult, error) {
	f.query, f.urls = query, urls
	if len(urls) > 0 && urls[0] == "https://evil.example.com" {
		return domain.SearchResult{}, domain.ErrDisallowedURL
	}
	return domain.SearchResult{Query: query, Answer: "b"}, nil
}

func (f *fakeRAG) RelatedQuestions(context.Context, string) []string { return []string{"x"} }

func TestNew_RegistersTools(t *testing.T) {
	assert.NotNil(t, New(&fakeRAG{}).server)
}

func TestHandleSearch(t *testing.T) {
	rag := &fakeRAG{}
	s := New(rag)

	_, out, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "  What is Eid?  "})
	require.NoError(t, err)
	assert.Equal(t, "a", out.Answer)
	assert.Equal(t, "What is Eid?", rag.query)

	_, _, err = s.handleSearch(context.Background(), nil, SearchInput{Query: "hi"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandleAnswer(t *testing.T) {
	rag := &fakeRAG{}
	s := New(rag)
	ctx := context.Background()

	_, out, err := s.handleAnswer(ctx, nil, AnswerInput{Query: "What is Eid?", URLs: []string{"https://troid.org/eid"}})
	require.NoError(t, err)
	assert.Equal(t, "b", out.Answer)

	_, _, err = s.handleAnswer(ctx, nil, AnswerInput{Query: "What is Eid?"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = s.handleAnswer(ctx, nil, AnswerInput{Query: "What is Eid?", URLs: []string{"https://evil.example.com"}})
	assert.ErrorIs(t, err, domain.ErrDisallowedURL)
}

func TestHandleRelated(t *testing.T) {
	s := New(&fakeRAG{})
	_, out, err := s.handleRelated(context.Background(), nil, RelatedInput{Topic: "Eid"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out.Questions)

	_, _, err = s.handleRelated(context.Background(), nil, RelatedInput{Topic: "E"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
