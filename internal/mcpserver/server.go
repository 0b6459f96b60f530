// Package mcpserver exposes the RAG service as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"eidrag/internal/domain"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// RAG is the subset of the service the tools call.
type RAG interface {
	Search(ctx context.Context, query, userID string) (domain.SearchResult, error)
	AnswerFromURLs(ctx context.Context, query string, urls []string) (domain.SearchResult, error)
	RelatedQuestions(ctx context.Context, topic string) []string
}

// Server wraps an mcp.Server with the knowledge tools registered.
type Server struct {
	rag    RAG
	server *mcp.Server
}

// New registers the tools.
func New(rag RAG) *Server {
	s := &Server{
		rag:    rag,
		server: mcp.NewServer(&mcp.Implementation{Name: "eidrag", Version: Version}, nil),
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

type SearchInput struct {
	Query string `json:"query" jsonschema:"question to answer from the trusted knowledge base (3-500 characters)"`
}

type AnswerInput struct {
	Query string   `json:"query" jsonschema:"question to answer (3-500 characters)"`
	URLs  []string `json:"urls" jsonschema:"1 to 10 pages on trusted domains to answer from"`
}

type RelatedInput struct {
	Topic string `json:"topic" jsonschema:"topic to suggest questions about (2-200 characters)"`
}

type RelatedOutput struct {
	Questions []string `json:"questions"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Answer a question from indexed trusted Islamic sources, with cited sources and a confidence score",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer_from_urls",
		Description: "Answer a question using only the given pages; every URL must be on a trusted domain",
	}, s.handleAnswer)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "related_questions",
		Description: "Suggest up to five related questions about a topic",
	}, s.handleRelated)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, domain.SearchResult, error) {
	q, err := between("query", in.Query, 3, 500)
	if err != nil {
		return nil, domain.SearchResult{}, err
	}
	res, err := s.rag.Search(ctx, q, "")
	if err != nil {
		return nil, domain.SearchResult{}, err
	}
	return nil, res, nil
}

func (s *Server) handleAnswer(ctx context.Context, _ *mcp.CallToolRequest, in AnswerInput) (*mcp.CallToolResult, domain.SearchResult, error) {
	q, err := between("query", in.Query, 3, 500)
	if err != nil {
		return nil, domain.SearchResult{}, err
	}
	if len(in.URLs) == 0 || len(in.URLs) > 10 {
		return nil, domain.SearchResult{}, fmt.Errorf("%w: urls must list 1 to 10 pages", domain.ErrInvalidInput)
	}
	res, err := s.rag.AnswerFromURLs(ctx, q, in.URLs)
	if err != nil {
		return nil, domain.SearchResult{}, err
	}
	return nil, res, nil
}

func (s *Server) handleRelated(ctx context.Context, _ *mcp.CallToolRequest, in RelatedInput) (*mcp.CallToolResult, RelatedOutput, error) {
	topic, err := between("topic", in.Topic, 2, 200)
	if err != nil {
		return nil, RelatedOutput{}, err
	}
	return nil, RelatedOutput{Questions: s.rag.RelatedQuestions(ctx, topic)}, nil
}

func between(field, v string, lo, hi int) (string, error) {
	v = strings.TrimSpace(v)
	if n := len([]rune(v)); n < lo || n > hi {
		return "", fmt.Errorf("%w: %s must be between %d and %d characters", domain.ErrInvalidInput, field, lo, hi)
	}
	return v, nil
}
