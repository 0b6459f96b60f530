// Package vectorstore builds the configured vector index.
package vectorstore

import (
	"fmt"
	"time"

	"eidrag/internal/config"
	"eidrag/internal/domain"
	"eidrag/internal/vectorstore/memory"
	"eidrag/internal/vectorstore/qdrant"
)

// New returns the vector index selected by cfg.Type. A qdrant store with no
// URL is returned unconfigured rather than as an error.
func New(cfg config.VectorStoreConfig) (domain.VectorIndex, error) {
	switch cfg.Type {
	case "qdrant", "":
		q := cfg.Qdrant
		if q == nil {
			q = &config.QdrantConfig{Collection: "islamic_chunks"}
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:                q.URL,
			APIKey:             q.APIKey,
			Collection:         q.Collection,
			RecreateOnMismatch: q.RecreateOnMismatch,
			Timeout:            time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	case "memory":
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
}
