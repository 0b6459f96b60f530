// Package service composes retrieval, generation and scoring into the
// question answering operations exposed by every front end.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eidrag/internal/cache"
	"eidrag/internal/confidence"
	"eidrag/internal/domain"
	"eidrag/internal/generator"
	"eidrag/internal/history"
	"eidrag/internal/logger"
)

var log = logger.New("rag")

// Retriever finds the sources an answer is grounded on.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.Source, error)
	FromURLs(ctx context.Context, query string, urls []string) ([]domain.Source, error)
	TrustedDomains() []string
}

// Generator turns sources into answers.
type Generator interface {
	Generate(ctx context.Context, query string, sources []domain.Source) (generator.Result, error)
	RelatedQuestions(ctx context.Context, topic string) []string
}

// HistoryStore records and reports on identified searches.
type HistoryStore interface {
	domain.HistoryStore
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryRecord, error)
	Stats(ctx context.Context) (history.Stats, error)
}

// RAGService is the orchestrator. The cache is owned by the service and
// injected so tests can scope it.
type RAGService struct {
	retriever Retriever
	generator Generator
	cache     *cache.Cache
	history   HistoryStore
	now       func() time.Time
}

// NewRAGService wires the orchestrator. history may be nil, in which case
// searches are not recorded.
func NewRAGService(retriever Retriever, gen Generator, c *cache.Cache, hist HistoryStore) *RAGService {
	if c == nil {
		c = cache.New(cache.DefaultTTL)
	}
	return &RAGService{retriever: retriever, generator: gen, cache: c, history: hist, now: time.Now}
}

// Search answers query from the knowledge base. Fresh cached answers are
// returned as-is; new answers are cached and, when userID is set, recorded.
func (s *RAGService) Search(ctx context.Context, query, userID string) (domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchResult{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if cached, ok := s.cache.Get(query); ok {
		log.Debug("cache hit: %q", query)
		return cached, nil
	}

	start := s.now()
	sources, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("failed to search: %w", err)
	}
	result, err := s.answer(ctx, query, sources, start)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("failed to search: %w", err)
	}
	s.cache.Set(query, result)

	if userID != "" && s.history != nil {
		rec := domain.HistoryRecord{
			UserID:       userID,
			Query:        query,
			Answer:       result.Answer,
			Sources:      result.Sources,
			Confidence:   result.Confidence,
			ResponseTime: result.ResponseTime,
		}
		if err := s.history.Save(ctx, rec); err != nil {
			log.Warn("history save failed for %s: %v", userID, err)
		}
	}
	return result, nil
}

// AnswerFromURLs answers query from the given trusted pages only. Results are
// neither cached nor recorded.
func (s *RAGService) AnswerFromURLs(ctx context.Context, query string, urls []string) (domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchResult{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	start := s.now()
	sources, err := s.retriever.FromURLs(ctx, query, urls)
	if err != nil {
		if errors.Is(err, domain.ErrDisallowedURL) || errors.Is(err, domain.ErrInvalidInput) {
			return domain.SearchResult{}, err
		}
		return domain.SearchResult{}, fmt.Errorf("failed to answer: %w", err)
	}
	result, err := s.answer(ctx, query, sources, start)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("failed to answer: %w", err)
	}
	return result, nil
}

func (s *RAGService) answer(ctx context.Context, query string, sources []domain.Source, start time.Time) (domain.SearchResult, error) {
	gen, err := s.generator.Generate(ctx, query, sources)
	if err != nil {
		return domain.SearchResult{}, err
	}
	if sources == nil {
		sources = []domain.Source{}
	}
	return domain.SearchResult{
		Query:        query,
		Answer:       gen.Text,
		Sources:      sources,
		Confidence:   confidence.Score(sources),
		ResponseTime: s.now().Sub(start).Milliseconds(),
		Model:        gen.Model,
	}, nil
}

// RelatedQuestions suggests up to five follow-up questions.
func (s *RAGService) RelatedQuestions(ctx context.Context, topic string) []string {
	return s.generator.RelatedQuestions(ctx, strings.TrimSpace(topic))
}

// TrustedDomains lists the hosts ad-hoc answers may cite.
func (s *RAGService) TrustedDomains() []string { return s.retriever.TrustedDomains() }

// ClearCache drops every cached answer.
func (s *RAGService) ClearCache() {
	s.cache.Clear()
	log.Info("cache cleared")
}

// History returns the caller's recent searches.
func (s *RAGService) History(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("history: %w", domain.ErrNotConfigured)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	return s.history.ListByUser(ctx, userID, history.UserLimit)
}

// Stats summarizes recorded searches.
func (s *RAGService) Stats(ctx context.Context) (history.Stats, error) {
	if s.history == nil {
		return history.Stats{}, fmt.Errorf("history: %w", domain.ErrNotConfigured)
	}
	return s.history.Stats(ctx)
}
