// Package ingest crawls trusted sites and indexes their text as vectors.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"eidrag/internal/domain"
	"eidrag/internal/extractor"
	"eidrag/internal/fetch"
	"eidrag/internal/logger"
	"eidrag/internal/scope"
)

var log = logger.New("rag-index")

// Options bounds a crawl run.
type Options struct {
	MaxPages      int
	MinPageChars  int
	MinChunkChars int
	FollowLinks   bool
	CrawlDelay    time.Duration
}

// Stats summarizes a run.
type Stats struct {
	Seeds                 int    `json:"seeds"`
	PagesFetched          int    `json:"pagesFetched"`
	PagesSkippedUnchanged int    `json:"pagesSkippedUnchanged"`
	PointsUpserted        int    `json:"pointsUpserted"`
	EmbeddedDim           int    `json:"embeddedDim"`
	StatePath             string `json:"statePath"`
}

// Pipeline runs breadth-first crawls and indexes new or changed pages.
type Pipeline struct {
	fetcher  fetch.Fetcher
	chunker  domain.Chunker
	embedder domain.Embedder
	index    domain.VectorIndex
	state    *StateStore
	opts     Options
	now      func() time.Time
}

// New assembles a pipeline.
func New(fetcher fetch.Fetcher, chunker domain.Chunker, embedder domain.Embedder, index domain.VectorIndex, state *StateStore, opts Options) *Pipeline {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 50
	}
	if opts.MinPageChars <= 0 {
		opts.MinPageChars = 500
	}
	if opts.MinChunkChars < 0 {
		opts.MinChunkChars = 0
	}
	return &Pipeline{
		fetcher:  fetcher,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		state:    state,
		opts:     opts,
		now:      time.Now,
	}
}

// frontier is a FIFO queue with a membership set. Nothing is enqueued once
// the set reaches its cap.
type frontier struct {
	queue []string
	head  int
	seen  map[string]struct{}
	limit int
}

func newFrontier(limit int) *frontier {
	return &frontier{seen: make(map[string]struct{}), limit: limit}
}

func (f *frontier) push(u string) bool {
	if _, ok := f.seen[u]; ok || len(f.seen) >= f.limit {
		return false
	}
	f.seen[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

func (f *frontier) pop() (string, bool) {
	if f.head >= len(f.queue) {
		return "", false
	}
	u := f.queue[f.head]
	f.queue[f.head] = ""
	f.head++
	return u, true
}

// Run crawls from seeds, staying on allowedDomains. When allowedDomains is
// empty the seed hosts are used. Fetch failures and thin pages are skipped;
// embedding and index failures abort the run.
func (p *Pipeline) Run(ctx context.Context, seeds, allowedDomains []string) (Stats, error) {
	stats := Stats{StatePath: p.state.Path()}

	if len(allowedDomains) == 0 {
		for _, s := range seeds {
			if h := scope.HostOf(s); h != "" {
				allowedDomains = append(allowedDomains, h)
			}
		}
	}
	checker := scope.NewChecker(allowedDomains)

	front := newFrontier(p.opts.MaxPages * 5)
	for _, s := range seeds {
		u := scope.NormalizeURL(s)
		if u == "" || !checker.Allowed(u) {
			continue
		}
		if front.push(u) {
			stats.Seeds++
		}
	}
	if stats.Seeds == 0 {
		return stats, domain.ErrNoSeeds
	}

	state, err := p.state.Load(ctx)
	if err != nil {
		return stats, err
	}

	limit := rate.Inf
	if p.opts.CrawlDelay > 0 {
		limit = rate.Every(p.opts.CrawlDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	log.Info("run start: seeds=%d maxPages=%d state=%s", stats.Seeds, p.opts.MaxPages, stats.StatePath)
	dim := 0
	for stats.PagesFetched < p.opts.MaxPages {
		pageURL, ok := front.pop()
		if !ok {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			return stats, err
		}
		raw, err := p.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.Debug("skip %s: %v", pageURL, err)
			continue
		}
		stats.PagesFetched++

		page, err := extractor.Extract(raw, pageURL, checker.Allowed)
		if err != nil {
			log.Debug("skip %s: %v", pageURL, err)
			continue
		}
		if p.opts.FollowLinks {
			for _, link := range page.Links {
				front.push(link)
			}
		}
		if utf8.RuneCountInString(page.Text) < p.opts.MinPageChars {
			continue
		}

		hash := PageHash(page.Text)
		if prev, ok := state[pageURL]; ok && prev.Hash == hash {
			stats.PagesSkippedUnchanged++
			if err := p.state.Save(ctx, state); err != nil {
				return stats, err
			}
			continue
		}

		title := page.Title
		if title == "" {
			title = pageURL
		}
		host := scope.HostOf(pageURL)
		n, err := p.indexPage(ctx, domain.Document{URL: pageURL, Title: title, Domain: host, Content: page.Text}, &dim)
		stats.EmbeddedDim = dim
		if err != nil {
			return stats, fmt.Errorf("index %s: %w", pageURL, err)
		}
		stats.PointsUpserted += n

		state[pageURL] = domain.PageRecord{Hash: hash, Title: title, Domain: host, UpdatedAt: p.now().UTC()}
		if err := p.state.Save(ctx, state); err != nil {
			return stats, err
		}
		log.Debug("indexed %s: %d points", pageURL, n)
	}
	log.Info("run done: fetched=%d unchanged=%d points=%d dim=%d",
		stats.PagesFetched, stats.PagesSkippedUnchanged, stats.PointsUpserted, stats.EmbeddedDim)
	return stats, nil
}

// indexPage embeds and upserts the page's chunks. The first vector of the
// run fixes *dim and ensures the collection.
func (p *Pipeline) indexPage(ctx context.Context, doc domain.Document, dim *int) (int, error) {
	chunks, err := p.chunker.Chunk(doc)
	if err != nil {
		return 0, err
	}
	points := make([]domain.Point, 0, len(chunks))
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Text) < p.opts.MinChunkChars {
			continue
		}
		vec, err := p.embedder.Embed(ctx, c.Text)
		if err != nil {
			return 0, err
		}
		if len(vec) == 0 {
			continue
		}
		if *dim == 0 {
			*dim = len(vec)
			if err := p.index.EnsureCollection(ctx, *dim); err != nil {
				return 0, err
			}
		} else if len(vec) != *dim {
			return 0, fmt.Errorf("%w: chunk %d has size %d, run started with %d", domain.ErrDimensionMismatch, c.Index, len(vec), *dim)
		}
		points = append(points, domain.Point{
			ID:     PointID(doc.URL, c.Index),
			Vector: vec,
			Payload: domain.Payload{
				URL:        doc.URL,
				Title:      doc.Title,
				Domain:     doc.Domain,
				ChunkIndex: c.Index,
				Text:       c.Text,
			},
		})
	}
	if len(points) == 0 {
		return 0, nil
	}
	if err := p.index.Upsert(ctx, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

// IsConfigError reports whether err stems from configuration rather than a
// transient failure.
func IsConfigError(err error) bool {
	return errors.Is(err, domain.ErrDimensionMismatch) || errors.Is(err, domain.ErrNotConfigured) || errors.Is(err, domain.ErrNoSeeds)
}
