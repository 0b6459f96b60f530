// Package gemini is a minimal REST client for the Generative Language API
// shared by the Gemini embedder and completer.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eidrag/internal/domain"
	"eidrag/internal/upstream"
)

// DefaultBaseURL is the public Generative Language endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client issues authenticated JSON calls.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client. A missing key is not an error here; calls fail with
// domain.ErrNotConfigured instead.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	// model calls rely on the transport default when no timeout is set
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// ModelPath returns "models/<name>", accepting names with or without the prefix.
func ModelPath(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

// Post sends body to path and decodes the JSON response into out.
func (c *Client) Post(ctx context.Context, operation, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, operation, http.MethodPost, path, bytes.NewReader(data), out)
}

// Get fetches path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, operation, path string, out any) error {
	return c.do(ctx, operation, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, operation, method, path string, body io.Reader, out any) error {
	if !c.Configured() {
		return fmt.Errorf("gemini %s: %w", operation, domain.ErrNotConfigured)
	}
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	endpoint += sep + "key=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gemini %s: %w", operation, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gemini %s: read body: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstream.NewAPIError("gemini", operation, resp, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("gemini %s: decode: %w", operation, err)
	}
	return nil
}
