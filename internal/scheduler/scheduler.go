// Package scheduler drives recurring ingestion runs. At most one run is in
// flight; triggers that arrive while a run is busy are dropped.
package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"eidrag/internal/config"
	"eidrag/internal/ingest"
	"eidrag/internal/logger"
	"eidrag/internal/upstream"
)

var log = logger.New("rag-index")

// RunFunc performs one ingestion run.
type RunFunc func(ctx context.Context) (ingest.Stats, error)

// Options configures a Scheduler.
type Options struct {
	OnStartup    bool
	StartupDelay time.Duration
	// Interval <= 0 disables periodic runs.
	Interval time.Duration
	// WatchPath, when set, triggers a run whenever the file changes.
	WatchPath string
}

// Status is a snapshot of scheduler state.
type Status struct {
	Enabled    bool          `json:"enabled"`
	Running    bool          `json:"running"`
	Runs       int           `json:"runs"`
	Skipped    int           `json:"skipped"`
	Interval   string        `json:"interval,omitempty"`
	LastReason string        `json:"lastReason,omitempty"`
	LastStart  time.Time     `json:"lastStart,omitempty"`
	LastFinish time.Time     `json:"lastFinish,omitempty"`
	LastStats  *ingest.Stats `json:"lastStats,omitempty"`
	LastError  string        `json:"lastError,omitempty"`
}

// Scheduler serializes ingestion runs.
type Scheduler struct {
	run  RunFunc
	opts Options

	busy atomic.Bool
	wg   sync.WaitGroup

	mu      sync.Mutex
	status  Status
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New returns a scheduler; it does nothing until Start or Trigger is called.
func New(run RunFunc, opts Options) *Scheduler {
	s := &Scheduler{run: run, opts: opts}
	if opts.Interval > 0 {
		s.status.Interval = opts.Interval.String()
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Eligible reports whether automatic ingestion may start for cfg, and why not.
func Eligible(cfg *config.AppConfig) (bool, string) {
	if !cfg.Scheduler.Enabled {
		return false, "auto-index disabled"
	}
	if cfg.Embedder.Type == "gemini" && (cfg.Embedder.Gemini == nil || cfg.Embedder.Gemini.APIKey == "") {
		return false, "GEMINI_API_KEY not set"
	}
	if cfg.VectorStore.Type == "qdrant" && (cfg.VectorStore.Qdrant == nil || cfg.VectorStore.Qdrant.URL == "") {
		return false, "QDRANT_URL not set"
	}
	return true, ""
}

// Start schedules the startup run, the interval ticker and the file watch.
// Background work stops when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.status.Enabled = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	prev := s.cancel
	s.baseCtx, s.cancel = ctx, cancel
	s.mu.Unlock()
	prev()

	if s.opts.OnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			timer := time.NewTimer(s.opts.StartupDelay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
				s.RunOnce(ctx, "startup")
			}
		}()
	}

	if s.opts.Interval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(s.opts.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.RunOnce(ctx, "interval")
				}
			}
		}()
	}

	if s.opts.WatchPath != "" {
		if err := s.watch(ctx, s.opts.WatchPath); err != nil {
			log.Warn("sources watch disabled: %v", err)
		}
	}
	log.Info("scheduler started: onStartup=%v interval=%s", s.opts.OnStartup, s.opts.Interval)
	return nil
}

func (s *Scheduler) watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// editors replace files, so the directory is watched
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				log.Info("sources file changed: %s", ev.Name)
				s.Trigger("sources-changed")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("watch error: %v", err)
			}
		}
	}()
	return nil
}

// Trigger starts a run in the background and reports whether it started.
func (s *Scheduler) Trigger(reason string) bool {
	if !s.busy.CompareAndSwap(false, true) {
		s.skip(reason)
		return false
	}
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.execute(ctx, reason)
	}()
	return true
}

// RunOnce runs synchronously. It returns false without running when another
// run is in progress.
func (s *Scheduler) RunOnce(ctx context.Context, reason string) (ingest.Stats, bool, error) {
	if !s.busy.CompareAndSwap(false, true) {
		s.skip(reason)
		return ingest.Stats{}, false, nil
	}
	defer s.busy.Store(false)
	stats, err := s.execute(ctx, reason)
	return stats, true, err
}

func (s *Scheduler) skip(reason string) {
	s.mu.Lock()
	s.status.Skipped++
	s.mu.Unlock()
	log.Info("run skipped (%s): already running", reason)
}

func (s *Scheduler) execute(ctx context.Context, reason string) (ingest.Stats, error) {
	start := time.Now()
	s.mu.Lock()
	s.status.Running = true
	s.status.LastReason = reason
	s.status.LastStart = start
	s.mu.Unlock()

	log.Info("run start (%s)", reason)
	stats, err := s.run(ctx)

	s.mu.Lock()
	s.status.Running = false
	s.status.Runs++
	s.status.LastFinish = time.Now()
	s.status.LastStats = &stats
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		logFailure(reason, err)
		return stats, err
	}
	log.Info("run complete (%s) in %s: fetched=%d unchanged=%d points=%d",
		reason, time.Since(start).Round(time.Millisecond), stats.PagesFetched, stats.PagesSkippedUnchanged, stats.PointsUpserted)
	return stats, nil
}

func logFailure(reason string, err error) {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		retry := "-"
		if apiErr.RetryAfter > 0 {
			retry = apiErr.RetryAfter.String()
		}
		log.Error("run failed (%s): %v status=%d %s retryAfter=%s body=%q",
			reason, err, apiErr.Status, apiErr.StatusText, retry, apiErr.BodyPreview(400))
		return
	}
	if ingest.IsConfigError(err) {
		log.Error("run failed (%s): configuration: %v", reason, err)
		return
	}
	log.Error("run failed (%s): %v", reason, err)
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Running = s.busy.Load()
	return st
}

// Stop cancels background work and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	cancel()
	s.wg.Wait()
}
