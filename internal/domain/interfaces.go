package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConfigured is returned when an optional backend has no configuration.
	ErrNotConfigured = errors.New("backend not configured")
	// ErrDimensionMismatch is returned when a collection and an embedding disagree on vector size.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrDisallowedURL is returned when a URL host is outside the trusted domain list.
	ErrDisallowedURL = errors.New("url not on allowed domain list")
	// ErrNoSeeds is returned when an ingestion run has no usable seed URLs.
	ErrNoSeeds = errors.New("no valid seed urls")
	// ErrInvalidInput is returned for malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// Document is a fetched page after text extraction.
type Document struct {
	URL     string
	Title   string
	Domain  string
	Content string
}

// Chunk is a bounded window of a document's text, the unit of embedding.
type Chunk struct {
	URL    string
	Title  string
	Domain string
	Index  int
	Text   string
}

// Payload is the metadata stored alongside every vector point.
type Payload struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Domain     string `json:"domain"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// Point is a vector record keyed by a stable identifier.
type Point struct {
	ID      string
	Vector  []float64
	Payload Payload
}

// Hit is a nearest-neighbour match returned by a vector search.
type Hit struct {
	ID      string
	Score   float64
	Payload Payload
}

// Filter restricts a vector search to matching payloads.
type Filter struct {
	Domain string
}

// ScoreKind records where a relevance score came from. Vector similarity and
// keyword overlap have different ranges and must not be compared directly.
type ScoreKind string

const (
	ScoreVector  ScoreKind = "vector"
	ScoreKeyword ScoreKind = "keyword"
)

// Source is a ranked piece of evidence handed to the answer generator.
type Source struct {
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Domain     string    `json:"domain"`
	Excerpt    string    `json:"excerpt"`
	Content    string    `json:"content,omitempty"`
	Relevance  float64   `json:"relevance"`
	RawScore   float64   `json:"rawScore"`
	ScoreKind  ScoreKind `json:"scoreKind"`
	ChunkIndex *int      `json:"chunkIndex,omitempty"`
}

// SearchResult is the answer returned to callers.
type SearchResult struct {
	Query        string   `json:"query"`
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
	Confidence   float64  `json:"confidence"`
	ResponseTime int64    `json:"responseTime"`
	Model        string   `json:"model,omitempty"`
}

// PageRecord is the per-URL ingestion state used to skip unchanged pages.
type PageRecord struct {
	Hash      string    `json:"hash"`
	Title     string    `json:"title"`
	Domain    string    `json:"domain"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HistoryRecord is a persisted search made by an identified caller.
type HistoryRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Query        string    `json:"query"`
	Answer       string    `json:"answer,omitempty"`
	Sources      []Source  `json:"sources,omitempty"`
	Confidence   float64   `json:"confidence"`
	ResponseTime int64     `json:"responseTime"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	// Dimension returns the configured output size, or the size observed on
	// the first successful call when no override is set. Zero means unknown.
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// VectorIndex persists vectors and supports similarity search.
type VectorIndex interface {
	Configured() bool
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float64, limit int, filter *Filter) ([]Hit, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Completer requests a text completion from a named language model.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// LegacySource returns candidate snippets for one trusted domain.
type LegacySource interface {
	Search(ctx context.Context, domain, query string) ([]Source, error)
}

// HistoryStore persists searches made by identified callers.
type HistoryStore interface {
	Save(ctx context.Context, record HistoryRecord) error
}
