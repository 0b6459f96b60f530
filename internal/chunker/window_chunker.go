package chunker

import (
	"strings"

	"eidrag/internal/domain"
)

const (
	DefaultChunkSize = 1200
	DefaultOverlap   = 200
)

// WindowChunker splits text into fixed-size character windows with overlap.
// Sizes are counted in runes so multi-byte scripts are never cut mid-character.
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &WindowChunker{size: size, overlap: overlap}
}

// Chunk splits the document content and tags every window with its index.
func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	texts := c.Split(document.Content)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			URL:    document.URL,
			Title:  document.Title,
			Domain: document.Domain,
			Index:  i,
			Text:   text,
		})
	}
	return chunks, nil
}

// Split returns the ordered, trimmed, non-empty windows of text.
// Windows start every size-overlap runes; the last one may be shorter.
func (c *WindowChunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	step := c.size - c.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
