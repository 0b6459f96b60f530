package cli

import (
	"context"
	"time"

	"eidrag/internal/cache"
	"eidrag/internal/chunker"
	"eidrag/internal/config"
	"eidrag/internal/domain"
	"eidrag/internal/embedding"
	"eidrag/internal/fetch"
	"eidrag/internal/generator"
	"eidrag/internal/history"
	"eidrag/internal/ingest"
	"eidrag/internal/legacy"
	"eidrag/internal/llm"
	"eidrag/internal/retriever"
	"eidrag/internal/scheduler"
	"eidrag/internal/service"
	"eidrag/internal/summarizer"
	"eidrag/internal/validation"
	"eidrag/internal/vectorstore"
)

// app holds the assembled components shared by the commands.
type app struct {
	cfg       *config.AppConfig
	validator *validation.Validator
	index     domain.VectorIndex
	legacy    *legacy.Index
	history   *history.Store
	retriever *retriever.Retriever
	generator *generator.Generator
	service   *service.RAGService
	pipeline  *ingest.Pipeline
}

// newApp assembles every component from c. History is opened only when
// withHistory is set; failing to open it is logged, not fatal.
func newApp(c *config.AppConfig, withHistory bool) (*app, error) {
	v, err := validation.New()
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(c.Embedder)
	if err != nil {
		return nil, err
	}
	index, err := vectorstore.New(c.VectorStore)
	if err != nil {
		return nil, err
	}
	completer, err := llm.New(c.Generator)
	if err != nil {
		return nil, err
	}
	sum, err := summarizer.New(c.Summarizer.Type)
	if err != nil {
		return nil, err
	}
	leg, err := legacy.New(legacy.DefaultSnippets)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:   time.Duration(c.Ingest.FetchTimeoutSecs) * time.Second,
		MaxBytes:  c.Ingest.MaxBodyBytes,
		UserAgent: c.Ingest.UserAgent,
	})
	ch := chunker.NewWindowChunker(c.Ingest.ChunkSize, c.Ingest.ChunkOverlap)

	a := &app{cfg: c, validator: v, index: index, legacy: leg}
	a.retriever = retriever.New(emb, index, leg, fetcher, ch, sum, retriever.Options{
		Mode:             retriever.Mode(c.Retriever.Mode),
		TopK:             c.Retriever.TopK,
		LegacyLimit:      c.Retriever.LegacyLimit,
		AdhocMinChars:    c.Retriever.AdhocMinChars,
		TrustedDomains:   c.Retriever.TrustedDomains,
		ExcerptSentences: c.Summarizer.MaxSentences,
	})
	a.generator = generator.New(completer, c.Generator.Model, c.Generator.FallbackModels)
	a.pipeline = ingest.New(fetcher, ch, emb, index, ingest.NewStateStore(c.Sources.StateFile), ingest.Options{
		MaxPages:      c.Ingest.MaxPages,
		MinPageChars:  c.Ingest.MinPageChars,
		MinChunkChars: c.Ingest.MinChunkChars,
		FollowLinks:   c.Ingest.FollowLinks,
		CrawlDelay:    time.Duration(c.Ingest.CrawlDelayMS) * time.Millisecond,
	})

	var hist service.HistoryStore
	if withHistory {
		store, err := history.Open(c.History.Dir)
		if err != nil {
			log.Warn("search history disabled: %v", err)
		} else {
			a.history = store
			hist = store
		}
	}
	a.service = service.NewRAGService(a.retriever, a.generator, cache.New(time.Duration(c.Cache.TTLMinutes)*time.Minute), hist)
	return a, nil
}

// ingestRun reads the sources file and runs one crawl.
func (a *app) ingestRun(ctx context.Context) (ingest.Stats, error) {
	src, err := config.LoadSources(a.cfg.Sources.File, a.cfg.Sources, a.validator, validation.Sources)
	if err != nil {
		return ingest.Stats{}, err
	}
	return a.pipeline.Run(ctx, src.SeedURLs, src.AllowedDomains)
}

// newScheduler builds the ingestion scheduler from the config.
func (a *app) newScheduler() *scheduler.Scheduler {
	s := a.cfg.Scheduler
	opts := scheduler.Options{
		OnStartup:    s.OnStartup,
		StartupDelay: time.Duration(s.StartupDelaySecs) * time.Second,
		Interval:     time.Duration(s.IntervalMinutes) * time.Minute,
	}
	if s.WatchSources {
		opts.WatchPath = a.cfg.Sources.File
	}
	return scheduler.New(a.ingestRun, opts)
}

func (a *app) Close() {
	if a.legacy != nil {
		if err := a.legacy.Close(); err != nil {
			log.Warn("closing legacy index: %v", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			log.Warn("closing history: %v", err)
		}
	}
}
