// Package llm builds the configured completion provider.
package llm

import (
	"fmt"
	"time"

	"eidrag/internal/config"
	"eidrag/internal/domain"
	gem "eidrag/internal/gemini"
	"eidrag/internal/llm/gemini"
	"eidrag/internal/llm/openai"
)

// New returns the completer selected by cfg.Type.
func New(cfg config.GeneratorConfig) (domain.Completer, error) {
	switch cfg.Type {
	case "gemini", "":
		g := cfg.Gemini
		if g == nil {
			g = &config.GeminiConfig{}
		}
		return gemini.NewCompleter(gem.New(gem.Config{BaseURL: g.BaseURL, APIKey: g.APIKey, Timeout: time.Duration(g.TimeoutSecs) * time.Second})), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai generator requires generator.openai config")
		}
		c, err := openai.NewCompleter(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported generator type: %s", cfg.Type)
	}
}
