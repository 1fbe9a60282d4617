package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "instanon/pkg/errors"
	"instanon/pkg/logger"
)

func TestScanFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024", "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024", "nested", "b.mp4"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".DS_Store"), nil, 0644))

	files, err := ScanFiles(root)
	require.NoError(t, err)
	assert.True(t, files.Contains("a.jpg"))
	assert.True(t, files.Contains("b.mp4"))
	assert.False(t, files.Contains(".DS_Store"))
	assert.False(t, files.Contains("nested"))
	assert.Len(t, files, 2)

	missing, err := ScanFiles(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestStoreSaveAndExists(t *testing.T) {
	scope := t.TempDir()
	dir := filepath.Join(scope, "Trip_123")
	store := NewStore(logger.NewTestLogger())

	exists, err := store.Exists(scope, "photo.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	testData := []byte("test photo data")
	n, err := store.Save(bytes.NewReader(testData), dir, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(len(testData)), n)

	content, err := os.ReadFile(filepath.Join(dir, "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, testData, content)
	assert.NoFileExists(t, filepath.Join(dir, "photo.jpg.tmp"))

	// rescanned, and visible from the wider scope
	exists, err = store.Exists(scope, "photo.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	// files added behind the store's back are seen too
	require.NoError(t, os.WriteFile(filepath.Join(scope, "manual.jpg"), []byte("m"), 0644))
	exists, err = store.Exists(scope, "manual.jpg")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStoreSaveRejectsBadNames(t *testing.T) {
	store := NewStore(logger.NewNopLogger())
	for _, name := range []string{"", "../escape.jpg", "a/b.jpg", ".hidden"} {
		_, err := store.Save(bytes.NewReader(nil), t.TempDir(), name)
		assert.Error(t, err, name)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStoreSaveReadFailure(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(logger.NewNopLogger())

	_, err := store.Save(io.MultiReader(bytes.NewReader([]byte("partial")), failingReader{}), dir, "x.jpg")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
	assert.NoFileExists(t, filepath.Join(dir, "x.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "x.jpg.tmp"))
}
