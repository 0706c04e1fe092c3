package checkpointstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlock/mailsync/internal/config"
	"github.com/driftlock/mailsync/internal/connector"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	cp := connector.NewCheckpoint()
	cp.Folders["INBOX"] = connector.FolderState{LastUID: 17, UIDValidity: 3, Done: true}
	cp.HasMore = false

	require.NoError(t, store.Save(context.Background(), cp))

	loaded, found, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cp.Folders, loaded.Folders)
	assert.False(t, loaded.HasMore)
}

func TestFileStoreLoadMissing(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	cp, found, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, cp.HasMore)
	assert.Empty(t, cp.Folders)
}

func TestFileStoreCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "checkpoint.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), connector.NewCheckpoint()))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, _, err = store.Load(context.Background())
	assert.Error(t, err)
}

func TestFileStoreOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	first := connector.NewCheckpoint()
	first.Folders["INBOX"] = connector.FolderState{LastUID: 1}
	require.NoError(t, store.Save(context.Background(), first))

	second := connector.NewCheckpoint()
	second.Folders["INBOX"] = connector.FolderState{LastUID: 2}
	require.NoError(t, store.Save(context.Background(), second))

	loaded, _, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), loaded.Folders["INBOX"].LastUID)

	// No temp files may linger after a successful save.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestFromConfigPicksBackend(t *testing.T) {
	fileStore, err := FromConfig(config.Checkpoint{Path: filepath.Join(t.TempDir(), "cp.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, fileStore)
}
