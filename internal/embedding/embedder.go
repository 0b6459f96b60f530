// Package embedding builds the configured text embedder.
package embedding

import (
	"fmt"
	"time"

	"eidrag/internal/config"
	"eidrag/internal/domain"
	"eidrag/internal/embedding/gemini"
	"eidrag/internal/embedding/hashing"
	"eidrag/internal/embedding/openai"
	gem "eidrag/internal/gemini"
)

// New returns the embedder selected by cfg.Type.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "gemini", "":
		g := cfg.Gemini
		if g == nil {
			g = &config.GeminiConfig{}
		}
		client := gem.New(gem.Config{BaseURL: g.BaseURL, APIKey: g.APIKey, Timeout: time.Duration(g.TimeoutSecs) * time.Second})
		return gemini.NewEmbedder(client, gemini.Config{Model: cfg.Model, OutputDim: cfg.OutputDim}), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder requires embedder.openai config")
		}
		c, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.Model,
			Dimensions: cfg.OutputDim,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "hashing":
		return hashing.NewEmbedder(cfg.OutputDim), nil
	default:
		return nil, fmt.Errorf("unsupported embedder type: %s", cfg.Type)
	}
}
