package config

import (
	"errors"
	"fmt"
	"os"
)

// Sources is the crawl definition read from the sources file.
type Sources struct {
	SeedURLs       []string `json:"seed_urls"`
	AllowedDomains []string `json:"allowed_domains"`
}

// Decoder validates and decodes a JSON document against a named schema.
type Decoder interface {
	Decode(name string, data []byte, out any) error
}

// LoadSources reads the sources file at path. A missing file yields empty
// sources. Seeds configured on cfg override the file's seed list.
func LoadSources(path string, cfg SourcesConfig, dec Decoder, schema string) (Sources, error) {
	var src Sources
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Sources{}, fmt.Errorf("read sources %s: %w", path, err)
	default:
		if err := dec.Decode(schema, data, &src); err != nil {
			return Sources{}, fmt.Errorf("sources %s: %w", path, err)
		}
	}
	if len(cfg.SeedURLs) > 0 {
		src.SeedURLs = append([]string(nil), cfg.SeedURLs...)
	}
	return src, nil
}
