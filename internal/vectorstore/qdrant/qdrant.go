package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eidrag/internal/domain"
	"eidrag/internal/logger"
)

var log = logger.New("qdrant")

// Storage is a minimal REST client to Qdrant.
// Collections use cosine distance.
type Storage struct {
	url                string
	apiKey             string
	collection         string
	recreateOnMismatch bool
	client             *http.Client
}

type Config struct {
	URL                string
	APIKey             string
	Collection         string
	RecreateOnMismatch bool
	Timeout            time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:                strings.TrimRight(cfg.URL, "/"),
		apiKey:             cfg.APIKey,
		collection:         cfg.Collection,
		recreateOnMismatch: cfg.RecreateOnMismatch,
		client:             &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a Qdrant URL is set.
func (s *Storage) Configured() bool { return s.url != "" }

// Collection returns the collection name.
func (s *Storage) Collection() string { return s.collection }

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

// EnsureCollection creates the collection when missing. An existing
// collection of another size is an error unless recreate-on-mismatch is set.
func (s *Storage) EnsureCollection(ctx context.Context, dimension int) error {
	if !s.Configured() {
		return nil
	}
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors json.RawMessage `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, &info)
	if status == http.StatusNotFound {
		return s.create(ctx, dimension)
	}
	if err != nil {
		return err
	}
	existing := vectorSize(info.Result.Config.Params.Vectors)
	if existing == 0 || existing == dimension {
		return nil
	}
	if !s.recreateOnMismatch {
		return fmt.Errorf("%w: collection %q has size %d but embeddings have size %d; set QDRANT_RECREATE_COLLECTION_ON_MISMATCH=true to rebuild",
			domain.ErrDimensionMismatch, s.collection, existing, dimension)
	}
	log.Warn("recreating collection %s: size %d -> %d", s.collection, existing, dimension)
	if _, err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil); err != nil {
		return err
	}
	return s.create(ctx, dimension)
}

func (s *Storage) create(ctx context.Context, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil)
	return err
}

// vectorSize reads the single unnamed vector size from collection params.
func vectorSize(raw json.RawMessage) int {
	var single struct {
		Size int `json:"size"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.Size > 0 {
		return single.Size
	}
	var named map[string]struct {
		Size int `json:"size"`
	}
	if err := json.Unmarshal(raw, &named); err == nil {
		for _, v := range named {
			return v.Size
		}
	}
	return 0
}

// Upsert inserts or replaces points by ID.
func (s *Storage) Upsert(ctx context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	if !s.Configured() {
		return fmt.Errorf("qdrant upsert: %w", domain.ErrNotConfigured)
	}
	body := make([]map[string]any, len(points))
	for i, p := range points {
		body[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", map[string]any{"points": body}, nil)
	return err
}

// Search returns the nearest points. Unconfigured storage yields no hits.
func (s *Storage) Search(ctx context.Context, vector []float64, limit int, filter *domain.Filter) ([]domain.Hit, error) {
	if !s.Configured() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter != nil && filter.Domain != "" {
		req["filter"] = map[string]any{
			"must": []map[string]any{
				{"key": "domain", "match": map[string]any{"value": filter.Domain}},
			},
		}
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload domain.Payload `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, domain.Hit{ID: fmt.Sprint(r.ID), Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// do sends a JSON request. Non-2xx responses become errors carrying the body.
func (s *Storage) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(payload)))
	}
	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return resp.StatusCode, fmt.Errorf("qdrant %s %s: decode: %w", method, url, err)
		}
	}
	return resp.StatusCode, nil
}
