package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"eidrag/internal/domain"
)

// State maps a normalized URL to its last ingested record.
type State map[string]domain.PageRecord

// StateStore persists State as a single JSON document.
type StateStore struct {
	fs  afs.Service
	url string
}

// NewStateStore returns a store for the given local path or afs URL.
func NewStateStore(location string) *StateStore {
	if abs, err := filepath.Abs(location); err == nil && !strings.Contains(location, "://") {
		location = abs
	}
	return &StateStore{fs: afs.New(), url: location}
}

// Path returns the location of the state document.
func (s *StateStore) Path() string { return s.url }

// Load reads the state. A missing document yields an empty state.
func (s *StateStore) Load(ctx context.Context) (State, error) {
	state := State{}
	exists, err := s.fs.Exists(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to check state %s: %w", s.url, err)
	}
	if !exists {
		return state, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state %s: %w", s.url, err)
	}
	return state, nil
}

// Save writes the state. Local files go to a sibling temp file that is
// renamed over the target; other afs backends get a direct upload.
func (s *StateStore) Save(ctx context.Context, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	path, local := localPath(s.url)
	if !local {
		if err := s.fs.Upload(ctx, s.url, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to write state: %w", err)
		}
		return nil
	}
	tmp := path + ".tmp"
	if err := s.fs.Upload(ctx, tmp, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload temp state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = s.fs.Delete(ctx, tmp)
		return fmt.Errorf("failed to replace state: %w", err)
	}
	return nil
}

// localPath reports whether location names a file on the local disk and
// returns its filesystem path.
func localPath(location string) (string, bool) {
	if !strings.Contains(location, "://") {
		return location, true
	}
	if rest, ok := strings.CutPrefix(location, "file://"); ok {
		return rest, true
	}
	return "", false
}
