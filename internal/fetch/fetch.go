// Package fetch downloads HTML pages with a bounded size and timeout.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Defaults for crawling trusted sites.
const (
	DefaultTimeout   = 20 * time.Second
	DefaultMaxBytes  = 2_000_000
	DefaultUserAgent = "Eid-RAG-Bot/0.1"
)

// Fetcher retrieves the raw HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config configures an HTTPFetcher.
type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// HTTPFetcher fetches pages over HTTP.
type HTTPFetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// New creates an HTTPFetcher, filling unset fields with defaults.
func New(cfg Config) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
}

// StatusError is returned for responses outside 200-399.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// ErrTooLarge is returned when a body exceeds MaxBytes.
var ErrTooLarge = errors.New("response body too large")

// Fetch returns the response body. Bodies over MaxBytes are rejected.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", &StatusError{URL: url, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("fetch %s: read body: %w", url, err)
	}
	if int64(len(data)) > f.maxBytes {
		return "", fmt.Errorf("fetch %s: %w (limit %d bytes)", url, ErrTooLarge, f.maxBytes)
	}
	return string(data), nil
}
