package secrets

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor(t *testing.T) {
	assert.Equal(t, "switchboard.apiKey.anthropic", KeyFor("anthropic"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok := store.Get(KeyFor("openai"))
	assert.False(t, ok)

	require.NoError(t, store.Set(KeyFor("openai"), "sk-test-123"))

	// A fresh store over the same file sees the value.
	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok := reopened.Get(KeyFor("openai"))
	assert.True(t, ok)
	assert.Equal(t, "sk-test-123", v)
}

func TestFileStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes not meaningful on windows")
	}
	path := filepath.Join(t.TempDir(), "sub", "secrets.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyFor("gemini"), "key"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestFileStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Set(KeyFor("ollama"), "token"))
	require.NoError(t, store.Delete(KeyFor("ollama")))
	_, ok := store.Get(KeyFor("ollama"))
	assert.False(t, ok)

	assert.NoError(t, store.Delete("never.existed"))
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	_, err := NewFileStore(path)
	assert.Error(t, err, "corrupt credentials should fail loudly, not silently reset")
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set("k", "v"))
	v, ok := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	require.NoError(t, store.Delete("k"))
	_, ok = store.Get("k")
	assert.False(t, ok)
}
