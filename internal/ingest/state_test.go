package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"

	"eidrag/internal/domain"
)

func TestStateStore_RoundTripAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewStateStore(path)
	ctx := context.Background()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := State{"https://troid.org/a": {Hash: "h1", Title: "A", Domain: "troid.org", UpdatedAt: updated}}
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PageRecord{Hash: "h1", Title: "A", Domain: "troid.org", UpdatedAt: updated}, loaded["https://troid.org/a"])

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStateStore_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStateStore(path)
	require.NoError(t, store.Save(context.Background(), State{"u": {Hash: "h"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hash": "h"`)
	assert.Contains(t, string(data), `"updatedAt"`)
}

func TestStateStore_RepeatedSavesStayAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStateStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, State{"https://troid.org/a": {Hash: "h1"}}))
	require.NoError(t, store.Save(ctx, State{"https://troid.org/a": {Hash: "h2"}, "https://troid.org/b": {Hash: "h3"}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, "h2", loaded["https://troid.org/a"].Hash)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStateStore_FileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStateStore("file://" + path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, State{"u": {Hash: "h"}}))
	require.NoError(t, store.Save(ctx, State{"u": {Hash: "h2"}}))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "h2", loaded["u"].Hash)
}

type unreadableFS struct {
	afs.Service
}

func (unreadableFS) Exists(context.Context, string, ...storage.Option) (bool, error) {
	return false, errors.New("permission denied")
}

func TestStateStore_LoadReportsBackendErrors(t *testing.T) {
	store := &StateStore{fs: unreadableFS{}, url: "mem://localhost/state.json"}
	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
