package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"

	"eidrag/internal/gemini"
)

// DefaultModel is used when no embedding model is configured.
const DefaultModel = "gemini-embedding-001"

// Config configures the Gemini embedder.
type Config struct {
	Model     string
	OutputDim int
}

// Embedder calls embedContent for every text. It does not retry.
type Embedder struct {
	client    *gemini.Client
	model     string
	outputDim int

	mu        sync.RWMutex
	dimension int
}

// NewEmbedder returns an embedder backed by client.
func NewEmbedder(client *gemini.Client, cfg Config) *Embedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Embedder{client: client, model: cfg.Model, outputDim: cfg.OutputDim, dimension: max(cfg.OutputDim, 0)}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "gemini" }

// Dimension returns the override, or the size of the last vector returned.
func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimension
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type embedRequest struct {
	Model                string  `json:"model"`
	Content              content `json:"content"`
	OutputDimensionality int     `json:"outputDimensionality,omitempty"`
}

type embedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed returns the embedding of text. Blank input yields an empty vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	model := gemini.ModelPath(e.model)
	req := embedRequest{Model: model, Content: content{Parts: []part{{Text: text}}}}
	if e.outputDim > 0 {
		req.OutputDimensionality = e.outputDim
	}
	var out embedResponse
	if err := e.client.Post(ctx, "embedContent", model+":embedContent", req, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding.Values) == 0 {
		return nil, errors.New("gemini embedContent: no embedding returned")
	}
	e.mu.Lock()
	e.dimension = len(out.Embedding.Values)
	e.mu.Unlock()
	return out.Embedding.Values, nil
}
