// Package retriever finds the evidence an answer is grounded on: vector
// search over the index with a keyword-ranked legacy fallback, and ad-hoc
// retrieval from caller-supplied URLs.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"eidrag/internal/domain"
	"eidrag/internal/extractor"
	"eidrag/internal/fetch"
	"eidrag/internal/ingest"
	"eidrag/internal/logger"
	"eidrag/internal/scope"
	"eidrag/internal/summarizer"
)

var log = logger.New("retriever")

// Mode selects the retrieval path.
type Mode string

const (
	// ModeVector searches the vector index and falls back to legacy.
	ModeVector Mode = "vector"
	// ModeLegacy always uses the keyword-ranked legacy sources.
	ModeLegacy Mode = "legacy"
)

// Defaults.
const (
	DefaultTopK          = 6
	DefaultLegacyLimit   = 10
	DefaultAdhocMinChars = 200
	defaultExcerpt       = 2
	excerptRunes         = 300
)

// DisallowedError rejects an ad-hoc request naming a URL outside the
// trusted domains.
type DisallowedError struct {
	URL     string
	Allowed []string
}

func (e *DisallowedError) Error() string {
	return fmt.Sprintf("url %q is not on an allowed domain; allowed domains: %s", e.URL, strings.Join(e.Allowed, ", "))
}

func (e *DisallowedError) Unwrap() error { return domain.ErrDisallowedURL }

// Options configures a Retriever.
type Options struct {
	Mode           Mode
	TopK           int
	LegacyLimit    int
	AdhocMinChars  int
	TrustedDomains []string

	// ExcerptSentences caps the summary shown for each source.
	ExcerptSentences int
}

// Retriever implements both retrieval paths.
type Retriever struct {
	embedder   domain.Embedder
	index      domain.VectorIndex
	legacy     domain.LegacySource
	fetcher    fetch.Fetcher
	chunker    domain.Chunker
	summarizer domain.Summarizer
	trusted    *scope.Checker
	opts       Options
}

// New assembles a retriever. embedder and index may be nil, in which case
// only the legacy path is available.
func New(embedder domain.Embedder, index domain.VectorIndex, legacy domain.LegacySource, fetcher fetch.Fetcher, chunker domain.Chunker, sum domain.Summarizer, opts Options) *Retriever {
	if opts.Mode == "" {
		opts.Mode = ModeVector
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.LegacyLimit <= 0 {
		opts.LegacyLimit = DefaultLegacyLimit
	}
	if opts.AdhocMinChars <= 0 {
		opts.AdhocMinChars = DefaultAdhocMinChars
	}
	if opts.ExcerptSentences <= 0 {
		opts.ExcerptSentences = defaultExcerpt
	}
	return &Retriever{
		embedder:   embedder,
		index:      index,
		legacy:     legacy,
		fetcher:    fetcher,
		chunker:    chunker,
		summarizer: sum,
		trusted:    scope.NewChecker(opts.TrustedDomains),
		opts:       opts,
	}
}

// TrustedDomains returns the ad-hoc allow-list.
func (r *Retriever) TrustedDomains() []string { return r.trusted.Domains() }

// Retrieve returns ordered sources for query. Vector results and legacy
// results are never mixed within one call.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.Source, error) {
	if r.opts.Mode == ModeVector && r.embedder != nil && r.index != nil && r.index.Configured() {
		sources, err := r.vectorSearch(ctx, query)
		switch {
		case err != nil:
			log.Warn("vector search failed, using legacy sources: %v", err)
		case len(sources) == 0:
			log.Debug("vector search returned nothing, using legacy sources")
		default:
			return sources, nil
		}
	}
	return r.legacySearch(ctx, query)
}

func (r *Retriever) vectorSearch(ctx context.Context, query string) ([]domain.Source, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, nil
	}
	hits, err := r.index.Search(ctx, vec, r.opts.TopK, nil)
	if err != nil {
		return nil, err
	}
	sources := make([]domain.Source, 0, len(hits))
	for _, h := range hits {
		idx := h.Payload.ChunkIndex
		sources = append(sources, domain.Source{
			Title:      h.Payload.Title,
			URL:        h.Payload.URL,
			Domain:     h.Payload.Domain,
			Excerpt:    summarizer.Excerpt(r.summarizer, h.Payload.Text, r.opts.ExcerptSentences, excerptRunes),
			Content:    h.Payload.Text,
			Relevance:  clamp01(h.Score),
			RawScore:   h.Score,
			ScoreKind:  domain.ScoreVector,
			ChunkIndex: &idx,
		})
	}
	return sources, nil
}

// legacySearch queries every trusted domain concurrently. A failing domain
// contributes nothing.
func (r *Retriever) legacySearch(ctx context.Context, query string) ([]domain.Source, error) {
	if r.legacy == nil {
		return nil, nil
	}
	domains := r.trusted.Domains()
	results := make([][]domain.Source, len(domains))
	var wg sync.WaitGroup
	for i, d := range domains {
		wg.Add(1)
		go func(i int, d string) {
			defer wg.Done()
			got, err := r.legacy.Search(ctx, d, query)
			if err != nil {
				log.Warn("legacy search %s: %v", d, err)
				return
			}
			results[i] = got
		}(i, d)
	}
	wg.Wait()

	var candidates []domain.Source
	for _, got := range results {
		for _, s := range got {
			if s.Content == "" {
				continue
			}
			if s.Excerpt == "" {
				s.Excerpt = summarizer.Excerpt(r.summarizer, s.Content, r.opts.ExcerptSentences, excerptRunes)
			}
			candidates = append(candidates, s)
		}
	}
	ranked := Rank(query, candidates)
	if len(ranked) > r.opts.LegacyLimit {
		ranked = ranked[:r.opts.LegacyLimit]
	}
	return ranked, nil
}

// CheckURLs normalizes urls and rejects the whole set if any one is not on
// a trusted domain.
func (r *Retriever) CheckURLs(urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: at least one url is required", domain.ErrInvalidInput)
	}
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		u := scope.NormalizeURL(raw)
		if u == "" || !r.trusted.Allowed(u) {
			return nil, &DisallowedError{URL: raw, Allowed: r.trusted.Domains()}
		}
		out = append(out, u)
	}
	return out, nil
}

// FromURLs fetches the given pages, ranks their chunks against query and
// returns the best TopK. The chosen chunks are also written to the vector
// index when possible; failures there are logged and ignored.
func (r *Retriever) FromURLs(ctx context.Context, query string, urls []string) ([]domain.Source, error) {
	checked, err := r.CheckURLs(urls)
	if err != nil {
		return nil, err
	}
	if r.fetcher == nil {
		return nil, fmt.Errorf("ad-hoc retrieval: %w", domain.ErrNotConfigured)
	}

	pages := make([][]domain.Source, len(checked))
	var wg sync.WaitGroup
	for i, u := range checked {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			pages[i] = r.pageCandidates(ctx, u)
		}(i, u)
	}
	wg.Wait()

	var pool []domain.Source
	for _, p := range pages {
		pool = append(pool, p...)
	}
	ranked := Rank(query, pool)
	if len(ranked) > r.opts.TopK {
		ranked = ranked[:r.opts.TopK]
	}
	for i := range ranked {
		ranked[i].Excerpt = summarizer.Excerpt(r.summarizer, ranked[i].Content, r.opts.ExcerptSentences, excerptRunes)
	}
	r.reindex(ctx, ranked)
	return ranked, nil
}

func (r *Retriever) pageCandidates(ctx context.Context, pageURL string) []domain.Source {
	raw, err := r.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		log.Warn("ad-hoc fetch %s: %v", pageURL, err)
		return nil
	}
	page, err := extractor.Extract(raw, pageURL, func(string) bool { return false })
	if err != nil || utf8.RuneCountInString(page.Text) < r.opts.AdhocMinChars {
		return nil
	}
	title := page.Title
	if title == "" {
		title = pageURL
	}
	host := scope.HostOf(pageURL)
	chunks, err := r.chunker.Chunk(domain.Document{URL: pageURL, Title: title, Domain: host, Content: page.Text})
	if err != nil {
		return nil
	}
	out := make([]domain.Source, 0, len(chunks))
	for _, c := range chunks {
		idx := c.Index
		out = append(out, domain.Source{Title: title, URL: pageURL, Domain: host, Content: c.Text, ChunkIndex: &idx})
	}
	return out
}

// reindex embeds and upserts the selected chunks. It never fails the caller.
func (r *Retriever) reindex(ctx context.Context, sources []domain.Source) {
	if r.embedder == nil || r.index == nil || !r.index.Configured() || len(sources) == 0 {
		return
	}
	if err := r.upsertSources(ctx, sources); err != nil {
		log.Warn("best-effort reindex skipped: %v", err)
	}
}

func (r *Retriever) upsertSources(ctx context.Context, sources []domain.Source) error {
	points := make([]domain.Point, 0, len(sources))
	dim := 0
	for _, s := range sources {
		vec, err := r.embedder.Embed(ctx, s.Content)
		if err != nil {
			return err
		}
		if len(vec) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return errors.New("embedder returned vectors of different sizes")
		}
		idx := 0
		if s.ChunkIndex != nil {
			idx = *s.ChunkIndex
		}
		points = append(points, domain.Point{
			ID:      ingest.PointID(s.URL, idx),
			Vector:  vec,
			Payload: domain.Payload{URL: s.URL, Title: s.Title, Domain: s.Domain, ChunkIndex: idx, Text: s.Content},
		})
	}
	if len(points) == 0 {
		return nil
	}
	if err := r.index.EnsureCollection(ctx, dim); err != nil {
		return err
	}
	return r.index.Upsert(ctx, points)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
