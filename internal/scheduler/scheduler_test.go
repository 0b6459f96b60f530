package scheduler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eidrag/internal/config"
	"eidrag/internal/ingest"
	"eidrag/internal/logger"
	"eidrag/internal/upstream"
)

func TestRunOnce_SkipsWhileBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32
	s := New(func(ctx context.Context) (ingest.Stats, error) {
		runs.Add(1)
		close(started)
		<-release
		return ingest.Stats{PagesFetched: 3}, nil
	}, Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stats, ran, err := s.RunOnce(context.Background(), "first")
		assert.True(t, ran)
		assert.NoError(t, err)
		assert.Equal(t, 3, stats.PagesFetched)
	}()
	<-started

	_, ran, err := s.RunOnce(context.Background(), "second")
	assert.False(t, ran)
	assert.NoError(t, err)
	assert.False(t, s.Trigger("third"))
	assert.True(t, s.Status().Running)

	close(release)
	wg.Wait()
	st := s.Status()
	assert.EqualValues(t, 1, runs.Load())
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 2, st.Skipped)
	assert.False(t, st.Running)
	require.NotNil(t, st.LastStats)
	assert.Equal(t, 3, st.LastStats.PagesFetched)
}

func TestFailureIsLoggedAndLaterRunsContinue(t *testing.T) {
	buf := new(bytes.Buffer)
	logger.SetOutput(buf)
	defer logger.SetOutput(os.Stderr)

	var calls atomic.Int32
	s := New(func(ctx context.Context) (ingest.Stats, error) {
		if calls.Add(1) == 1 {
			return ingest.Stats{}, &upstream.APIError{
				Provider: "gemini", Operation: "embedContent",
				Status: http.StatusTooManyRequests, StatusText: "Too Many Requests",
				Body: `{"error":"quota"}`, RetryAfter: 45 * time.Second,
			}
		}
		return ingest.Stats{}, nil
	}, Options{})

	_, ran, err := s.RunOnce(context.Background(), "startup")
	assert.True(t, ran)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "status=429")
	assert.Contains(t, buf.String(), "retryAfter=45s")
	assert.Contains(t, s.Status().LastError, "429")

	_, _, err = s.RunOnce(context.Background(), "interval")
	require.NoError(t, err)
	assert.Empty(t, s.Status().LastError)
	assert.Equal(t, 2, s.Status().Runs)
}

func TestStart_StartupAndInterval(t *testing.T) {
	var runs atomic.Int32
	s := New(func(ctx context.Context) (ingest.Stats, error) {
		runs.Add(1)
		return ingest.Stats{}, nil
	}, Options{OnStartup: true, StartupDelay: time.Millisecond, Interval: 20 * time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	assert.True(t, s.Status().Enabled)
}

func TestStart_NoIntervalRunsOnlyAtStartup(t *testing.T) {
	var runs atomic.Int32
	s := New(func(ctx context.Context) (ingest.Stats, error) {
		runs.Add(1)
		return ingest.Stats{}, nil
	}, Options{OnStartup: true, Interval: 0})

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	assert.EqualValues(t, 1, runs.Load())
}

func TestStart_WatchesSourcesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag_sources.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	var runs atomic.Int32
	s := New(func(ctx context.Context) (ingest.Stats, error) {
		runs.Add(1)
		return ingest.Stats{}, nil
	}, Options{WatchPath: path})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"seed_urls":["https://troid.org/"]}`), 0o644))
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestTrigger_RunsInBackground(t *testing.T) {
	done := make(chan struct{})
	s := New(func(ctx context.Context) (ingest.Stats, error) {
		close(done)
		return ingest.Stats{}, errors.New("boom")
	}, Options{})
	assert.True(t, s.Trigger("manual"))
	<-done
	s.Stop()
	assert.Equal(t, "boom", s.Status().LastError)
	assert.Equal(t, "manual", s.Status().LastReason)
}

func TestEligible(t *testing.T) {
	cfg := config.Default()
	ok, why := Eligible(cfg)
	assert.False(t, ok)
	assert.Contains(t, why, "GEMINI_API_KEY")

	cfg.Embedder.Gemini.APIKey = "k"
	ok, why = Eligible(cfg)
	assert.False(t, ok)
	assert.Contains(t, why, "QDRANT_URL")

	cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
	ok, _ = Eligible(cfg)
	assert.True(t, ok)

	cfg.Scheduler.Enabled = false
	ok, _ = Eligible(cfg)
	assert.False(t, ok)
}
