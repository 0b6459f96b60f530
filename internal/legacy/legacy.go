// Package legacy serves curated per-domain snippets from an in-memory bleve
// index. It backs the keyword retrieval path used when vector search is
// unavailable or returns nothing.
package legacy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"

	"eidrag/internal/domain"
	"eidrag/internal/scope"
)

// Snippet is a curated piece of content attributed to a trusted domain.
type Snippet struct {
	Domain  string
	Title   string
	Path    string
	Content string
	Excerpt string
}

// URL returns the absolute address of the snippet.
func (s Snippet) URL() string {
	return "https://" + s.Domain + "/" + strings.TrimLeft(s.Path, "/")
}

// DefaultSnippets is the curated content shipped with the binary.
var DefaultSnippets = []Snippet{
	{
		Domain:  "abukhadeejah.com",
		Title:   "The Importance of Following the Sunnah",
		Path:    "sunnah-importance",
		Content: "The Sunnah of the Prophet (peace be upon him) is the second source of Islamic legislation after the Quran. It provides guidance on how to implement the teachings of the Quran in daily life.",
		Excerpt: "The Sunnah provides practical guidance for implementing Quranic teachings...",
	},
	{
		Domain:  "bakkah.net",
		Title:   "Understanding Islamic Beliefs",
		Path:    "islamic-beliefs",
		Content: "Islamic beliefs are based on the six pillars of faith: belief in Allah, His angels, His books, His messengers, the Day of Judgment, and divine decree.",
		Excerpt: "The six pillars of faith form the foundation of Islamic belief...",
	},
	{
		Domain:  "troid.org",
		Title:   "The Fundamentals of Tawheed",
		Path:    "tawheed-fundamentals",
		Content: "Tawheed is the foundation of Islam, meaning the oneness of Allah. It encompasses three categories: Tawheed ar-Ruboobiyyah, Tawheed al-Uloohiyyah, and Tawheed al-Asmaa was-Sifaat.",
		Excerpt: "Tawheed, the oneness of Allah, is the core principle of Islam...",
	},
}

// Index is a keyword source over snippets.
type Index struct {
	idx bleve.Index

	mu       sync.RWMutex
	snippets map[string]Snippet
	byDomain map[string][]string
}

// New builds an index over snippets.
func New(snippets []Snippet) (*Index, error) {
	docMapping := bleve.NewDocumentMapping()
	domainField := bleve.NewTextFieldMapping()
	domainField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("domain", domainField)
	docMapping.AddFieldMappingsAt("title", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("content", bleve.NewTextFieldMapping())

	mapping := bleve.NewIndexMapping()
	mapping.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("create legacy index: %w", err)
	}
	ix := &Index{idx: idx, snippets: map[string]Snippet{}, byDomain: map[string][]string{}}
	for _, s := range snippets {
		if err := ix.Add(s); err != nil {
			_ = idx.Close()
			return nil, err
		}
	}
	return ix, nil
}

// Add indexes one snippet, replacing any snippet with the same URL.
func (ix *Index) Add(s Snippet) error {
	s.Domain = scope.NormalizeHost(s.Domain)
	id := s.URL()
	doc := map[string]any{
		"domain":  s.Domain,
		"title":   s.Title,
		"content": s.Content,
	}
	if err := ix.idx.Index(id, doc); err != nil {
		return fmt.Errorf("index snippet %s: %w", id, err)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.snippets[id]; !exists {
		ix.byDomain[s.Domain] = append(ix.byDomain[s.Domain], id)
	}
	ix.snippets[id] = s
	return nil
}

// Search returns the snippets of domain that match query. When none match,
// every snippet of the domain is returned so the ranker can still weigh them.
func (ix *Index) Search(ctx context.Context, domainName, q string) ([]domain.Source, error) {
	domainName = scope.NormalizeHost(domainName)
	ix.mu.RLock()
	total := len(ix.byDomain[domainName])
	ix.mu.RUnlock()
	if total == 0 {
		return nil, nil
	}

	dq := bleve.NewTermQuery(domainName)
	dq.SetField("domain")
	tq := bleve.NewMatchQuery(q)
	tq.SetField("title")
	cq := bleve.NewMatchQuery(q)
	cq.SetField("content")
	req := bleve.NewSearchRequestOptions(
		bleve.NewConjunctionQuery(dq, bleve.NewDisjunctionQuery(tq, cq)),
		total, 0, false)

	res, err := ix.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("legacy search %s: %w", domainName, err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	if len(ids) == 0 {
		ids = append(ids, ix.byDomain[domainName]...)
		sort.Strings(ids)
	}
	out := make([]domain.Source, 0, len(ids))
	for _, id := range ids {
		s, ok := ix.snippets[id]
		if !ok {
			continue
		}
		out = append(out, domain.Source{
			Title:     s.Title,
			URL:       id,
			Domain:    s.Domain,
			Excerpt:   s.Excerpt,
			Content:   s.Content,
			ScoreKind: domain.ScoreKeyword,
		})
	}
	return out, nil
}

// Close releases the index.
func (ix *Index) Close() error { return ix.idx.Close() }
